package models

import (
	"time"
)

// EntityType names the audited table an AuditRecord points at.
type EntityType string

const (
	EntityTimeEntry    EntityType = "time_entry"
	EntityUser         EntityType = "user"
	EntityWorkCode     EntityType = "work_code"
	EntityBusinessRule EntityType = "business_rule"
)

type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditApprove AuditAction = "approve"
	AuditReject  AuditAction = "reject"
)

// AuditRecord logs one field change on one tracked entity. Records are
// append-only: nothing in the application updates or deletes them.
// Every mutation writes its records in the same transaction as the
// business change, one record per changed field.
type AuditRecord struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
	EntityType EntityType  `gorm:"not null;size:20;index:idx_audit_entity" json:"entity_type"`
	EntityID   uint        `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Field      string      `gorm:"not null;size:100" json:"field"`
	OldValue   string      `gorm:"size:500" json:"old_value"`
	NewValue   string      `gorm:"size:500" json:"new_value"`
	Action     AuditAction `gorm:"not null;size:20;index" json:"action"`
	ActorID    uint        `gorm:"not null;index" json:"actor_id"`
	Actor      *User       `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}
