package models

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Profile{},
		&Project{},
		&Task{},
		&Milestone{},
		&ProjectDocument{},
		&Donor{},
		&Proposal{},
		&BudgetAllocation{},
		&Expenditure{},
		&DisbursementLog{},
		&AuditLog{},
	}
}
