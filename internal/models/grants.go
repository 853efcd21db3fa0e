package models

import (
	"time"

	"gorm.io/gorm"
)

type Donor struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	Type             string    `gorm:"size:50;not null" json:"type"`
	ContactPerson    string    `gorm:"size:255" json:"contactPerson,omitempty"`
	Email            string    `gorm:"size:255" json:"email,omitempty"`
	Phone            string    `gorm:"size:50" json:"phone,omitempty"`
	Address          string    `gorm:"type:text" json:"address,omitempty"`
	Website          string    `gorm:"size:255" json:"website,omitempty"`
	FocusAreas       string    `gorm:"type:text" json:"focusAreas,omitempty"`
	AverageGrantSize *int64    `json:"averageGrantSize,omitempty"`
	Notes            string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt        time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (d *Donor) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

type ProposalStatus string

const (
	ProposalStatusDraft       ProposalStatus = "draft"
	ProposalStatusSubmitted   ProposalStatus = "submitted"
	ProposalStatusUnderReview ProposalStatus = "under_review"
	ProposalStatusApproved    ProposalStatus = "approved"
	ProposalStatusRejected    ProposalStatus = "rejected"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusDraft, ProposalStatusSubmitted, ProposalStatusUnderReview,
		ProposalStatusApproved, ProposalStatusRejected:
		return true
	}
	return false
}

type Proposal struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	DonorID         *string        `gorm:"size:36;index" json:"donorId"`
	ProjectID       *string        `gorm:"size:36;index" json:"projectId"`
	Status          ProposalStatus `gorm:"size:20;not null;default:draft" json:"status"`
	AmountRequested int64          `gorm:"not null" json:"amountRequested"`
	AmountApproved  *int64         `json:"amountApproved"`
	Currency        string         `gorm:"size:3;not null;default:USD" json:"currency"`
	SubmissionDate  *time.Time     `json:"submissionDate,omitempty"`
	DecisionDate    *time.Time     `json:"decisionDate,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	Notes           string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy       string         `gorm:"size:36;not null" json:"createdBy"`
	CreatedAt       time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (p *Proposal) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
