package models

import (
	"time"

	"gorm.io/gorm"
)

// Amounts in this file are integers in the smallest currency unit.

type BudgetAllocation struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID     string    `gorm:"size:36;index;not null" json:"projectId"`
	ActivityName  string    `gorm:"size:255;not null" json:"activityName"`
	PlannedAmount int64     `gorm:"not null" json:"plannedAmount"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy     string    `gorm:"size:36;not null" json:"createdBy"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (b *BudgetAllocation) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

type Expenditure struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID          string    `gorm:"size:36;index;not null" json:"projectId"`
	BudgetAllocationID *string   `gorm:"size:36;index" json:"budgetAllocationId"`
	TaskID             *string   `gorm:"size:36" json:"taskId"`
	DonorID            *string   `gorm:"size:36" json:"donorId"`
	ActivityName       string    `gorm:"size:255" json:"activityName,omitempty"`
	Amount             int64     `gorm:"not null" json:"amount"`
	ExpenditureDate    time.Time `gorm:"index;not null" json:"expenditureDate"`
	Description        string    `gorm:"type:text" json:"description,omitempty"`
	CreatedBy          string    `gorm:"size:36;not null" json:"createdBy"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (e *Expenditure) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

// DisbursementLog records a donor-to-project transfer. It never touches
// project aggregates.
type DisbursementLog struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID          string    `gorm:"size:36;index;not null" json:"projectId"`
	DonorID            *string   `gorm:"size:36;index" json:"donorId"`
	BudgetAllocationID *string   `gorm:"size:36" json:"budgetAllocationId"`
	ExpenditureID      *string   `gorm:"size:36" json:"expenditureId"`
	ActivityName       string    `gorm:"size:255;not null" json:"activityName"`
	Amount             int64     `gorm:"not null" json:"amount"`
	DisbursedAt        time.Time `gorm:"index;not null" json:"disbursedAt"`
	Reference          string    `gorm:"size:255" json:"reference,omitempty"`
	Notes              string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy          string    `gorm:"size:36;not null" json:"createdBy"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (d *DisbursementLog) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
