package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the canonical role every access decision is made on.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleBeneficiary    Role = "beneficiary"
	RoleDonor          Role = "donor"
)

// Roles lists every canonical role.
var Roles = []Role{RoleAdmin, RoleProjectManager, RoleBeneficiary, RoleDonor}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleBeneficiary, RoleDonor:
		return true
	}
	return false
}

// LegacyRole is the three-value role still stored on users rows created
// before profiles existed. It is read once, at identity resolution.
type LegacyRole string

const (
	LegacyRoleAdmin   LegacyRole = "admin"
	LegacyRoleManager LegacyRole = "manager"
	LegacyRoleUser    LegacyRole = "user"
)

type User struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	Email      string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FirstName  string     `gorm:"size:100;not null" json:"firstName"`
	LastName   string     `gorm:"size:100;not null" json:"lastName"`
	Role       LegacyRole `gorm:"size:20;not null;default:user" json:"-"`
	Department string     `gorm:"size:100" json:"department,omitempty"`
	IsActive   bool       `gorm:"not null;default:true" json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Profile carries the canonical role. When present it wins over the
// legacy users.role column.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Role      Role      `gorm:"size:32;not null;default:beneficiary" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
