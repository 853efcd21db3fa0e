package ledger

import (
	"errors"
	"time"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/models"

	"gorm.io/gorm"
)

type BudgetAllocationInput struct {
	ProjectID     string
	ActivityName  string
	PlannedAmount int64
	Notes         string
	CreatedBy     string
}

func CreateBudgetAllocation(tx *gorm.DB, in BudgetAllocationInput) (*models.BudgetAllocation, error) {
	if err := ensureProject(tx, in.ProjectID); err != nil {
		return nil, err
	}
	row := &models.BudgetAllocation{
		ProjectID:     in.ProjectID,
		ActivityName:  in.ActivityName,
		PlannedAmount: in.PlannedAmount,
		Notes:         in.Notes,
		CreatedBy:     in.CreatedBy,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, apperr.Store("creating budget allocation", err)
	}
	return row, nil
}

type ExpenditureInput struct {
	ProjectID          string
	BudgetAllocationID *string
	TaskID             *string
	DonorID            *string
	ActivityName       string
	Amount             int64
	ExpenditureDate    time.Time
	Description        string
	CreatedBy          string
}

// CreateExpenditure inserts the expenditure and then bumps the project's
// cached spend with a single server-side increment, so concurrent
// expenditures on one project never lose an update.
func CreateExpenditure(tx *gorm.DB, in ExpenditureInput) (*models.Expenditure, error) {
	if err := ensureProject(tx, in.ProjectID); err != nil {
		return nil, err
	}
	if err := ensureAllocation(tx, "budgetAllocationId", in.BudgetAllocationID, in.ProjectID); err != nil {
		return nil, err
	}
	if err := ensureTask(tx, in.TaskID, in.ProjectID); err != nil {
		return nil, err
	}
	if err := ensureDonor(tx, in.DonorID); err != nil {
		return nil, err
	}

	row := &models.Expenditure{
		ProjectID:          in.ProjectID,
		BudgetAllocationID: in.BudgetAllocationID,
		TaskID:             in.TaskID,
		DonorID:            in.DonorID,
		ActivityName:       in.ActivityName,
		Amount:             in.Amount,
		ExpenditureDate:    in.ExpenditureDate,
		Description:        in.Description,
		CreatedBy:          in.CreatedBy,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, apperr.Store("creating expenditure", err)
	}

	if err := IncrementSpent(tx, in.ProjectID, in.Amount); err != nil {
		return nil, err
	}
	return row, nil
}

// IncrementSpent adds delta to projects.spent_budget in one statement.
func IncrementSpent(tx *gorm.DB, projectID string, delta int64) error {
	res := tx.Model(&models.Project{}).
		Where("id = ?", projectID).
		UpdateColumns(map[string]any{
			"spent_budget": gorm.Expr("COALESCE(spent_budget, 0) + ?", delta),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return apperr.Store("incrementing project spend", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Invalid("projectId", "does not reference an existing project")
	}
	return nil
}

type DisbursementInput struct {
	ProjectID          string
	DonorID            *string
	BudgetAllocationID *string
	ExpenditureID      *string
	ActivityName       string
	Amount             int64
	DisbursedAt        time.Time
	Reference          string
	Notes              string
	CreatedBy          string
}

// CreateDisbursement records a transfer. Project aggregates are untouched.
func CreateDisbursement(tx *gorm.DB, in DisbursementInput) (*models.DisbursementLog, error) {
	if err := ensureProject(tx, in.ProjectID); err != nil {
		return nil, err
	}
	if err := ensureDonor(tx, in.DonorID); err != nil {
		return nil, err
	}
	if err := ensureAllocation(tx, "budgetAllocationId", in.BudgetAllocationID, in.ProjectID); err != nil {
		return nil, err
	}
	if err := ensureExpenditure(tx, in.ExpenditureID, in.ProjectID); err != nil {
		return nil, err
	}

	row := &models.DisbursementLog{
		ProjectID:          in.ProjectID,
		DonorID:            in.DonorID,
		BudgetAllocationID: in.BudgetAllocationID,
		ExpenditureID:      in.ExpenditureID,
		ActivityName:       in.ActivityName,
		Amount:             in.Amount,
		DisbursedAt:        in.DisbursedAt,
		Reference:          in.Reference,
		Notes:              in.Notes,
		CreatedBy:          in.CreatedBy,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, apperr.Store("creating disbursement", err)
	}
	return row, nil
}

// -------------------------
// Reference checks
// -------------------------

func ensureProject(tx *gorm.DB, id string) error {
	var p models.Project
	err := tx.Select("id").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Invalid("projectId", "does not reference an existing project")
	}
	return apperr.Store("loading project", err)
}

func ensureAllocation(tx *gorm.DB, field string, id *string, projectID string) error {
	if id == nil {
		return nil
	}
	var b models.BudgetAllocation
	err := tx.Select("id", "project_id").First(&b, "id = ?", *id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Invalid(field, "does not reference an existing budget allocation")
	}
	if err != nil {
		return apperr.Store("loading budget allocation", err)
	}
	if b.ProjectID != projectID {
		return apperr.Invalid(field, "belongs to a different project")
	}
	return nil
}

func ensureTask(tx *gorm.DB, id *string, projectID string) error {
	if id == nil {
		return nil
	}
	var t models.Task
	err := tx.Select("id", "project_id").First(&t, "id = ?", *id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Invalid("taskId", "does not reference an existing task")
	}
	if err != nil {
		return apperr.Store("loading task", err)
	}
	if t.ProjectID != projectID {
		return apperr.Invalid("taskId", "belongs to a different project")
	}
	return nil
}

func ensureExpenditure(tx *gorm.DB, id *string, projectID string) error {
	if id == nil {
		return nil
	}
	var e models.Expenditure
	err := tx.Select("id", "project_id").First(&e, "id = ?", *id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Invalid("expenditureId", "does not reference an existing expenditure")
	}
	if err != nil {
		return apperr.Store("loading expenditure", err)
	}
	if e.ProjectID != projectID {
		return apperr.Invalid("expenditureId", "belongs to a different project")
	}
	return nil
}

func ensureDonor(tx *gorm.DB, id *string) error {
	if id == nil {
		return nil
	}
	var d models.Donor
	err := tx.Select("id").First(&d, "id = ?", *id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Invalid("donorId", "does not reference an existing donor")
	}
	return apperr.Store("loading donor", err)
}
