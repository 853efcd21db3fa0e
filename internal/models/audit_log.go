package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditLog is append-only: rows are inserted, never updated or deleted.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	// MutationID identifies the business mutation; a retried write for the
	// same mutation is ignored.
	MutationID string `gorm:"size:36;uniqueIndex;not null" json:"mutationId"`

	ActorUserID string      `gorm:"size:36;index;not null" json:"actorUserId"`
	Action      AuditAction `gorm:"size:20;not null" json:"action"`
	EntityType  string      `gorm:"size:50;index:idx_audit_entity;not null" json:"entityType"`
	EntityID    string      `gorm:"size:36;index:idx_audit_entity;not null" json:"entityId"`

	// {"after"} for create, {"before","after"} for update, {"before"} for delete.
	Changes  datatypes.JSON `json:"changes"`
	Metadata datatypes.JSON `json:"metadata"`
}
