package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

type Project struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	Name        string        `gorm:"size:255;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Status      ProjectStatus `gorm:"size:20;not null;default:planning" json:"status"`

	// TotalBudget is the overall budget figure; it is only the planned
	// budget when no itemized allocations exist.
	TotalBudget int64 `gorm:"not null;default:0" json:"totalBudget"`

	// SpentBudget caches the sum of the project's expenditures. It is only
	// ever changed by an atomic increment; see ledger.Reconcile.
	SpentBudget int64 `gorm:"not null;default:0" json:"spentBudget"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	ManagerID *string    `gorm:"size:36" json:"managerId,omitempty"`

	Tasks      []Task      `gorm:"constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
	Milestones []Milestone `gorm:"constraint:OnDelete:CASCADE" json:"milestones,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	ProjectID   string     `gorm:"size:36;index;not null" json:"projectId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Status      TaskStatus `gorm:"size:20;not null;default:pending" json:"status"`
	AssigneeID  *string    `gorm:"size:36" json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
	MilestoneStatusCancelled  MilestoneStatus = "cancelled"
)

func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneStatusPending, MilestoneStatusInProgress,
		MilestoneStatusCompleted, MilestoneStatusCancelled:
		return true
	}
	return false
}

type Milestone struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	ProjectID   string          `gorm:"size:36;index;not null" json:"projectId"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Status      MilestoneStatus `gorm:"size:20;not null;default:pending" json:"status"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Order       int             `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (m *Milestone) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// ProjectDocument is the record of a file attached to a project. The file
// itself lives in the document store under Key.
type ProjectDocument struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID  string    `gorm:"size:36;index;not null" json:"projectId"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Type       string    `gorm:"size:127;not null" json:"type"`
	Key        string    `gorm:"size:512;not null" json:"-"`
	URL        string    `gorm:"size:1024;not null" json:"url"`
	Size       int64     `gorm:"not null;default:0" json:"size"`
	UploadedBy string    `gorm:"size:36;index;not null" json:"uploadedBy"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (d *ProjectDocument) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
