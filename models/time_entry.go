package models

import (
	"time"

	"gorm.io/gorm"
)

type EntryStatus string

const (
	StatusDraft     EntryStatus = "draft"
	StatusSubmitted EntryStatus = "submitted"
	StatusApproved  EntryStatus = "approved"
	StatusRejected  EntryStatus = "rejected"
)

// MaxDailyHours is the ceiling on the sum of a user's hours for one date.
const MaxDailyHours = 24.0

// TimeEntry is one block of hours for one user, date and work code.
// A user may have several entries per day (e.g. 6h REG + 2h OT).
// Entries are soft-deleted so the audit trail stays reconstructable.
type TimeEntry struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	UserID          uint           `gorm:"not null;index:idx_entries_user_date" json:"user_id"`
	User            *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	WorkCodeID      uint           `gorm:"not null;index" json:"work_code_id"`
	WorkCode        *WorkCode      `gorm:"foreignKey:WorkCodeID" json:"work_code,omitempty"`
	Date            time.Time      `gorm:"not null;type:date;index:idx_entries_user_date" json:"date"`
	Hours           float64        `gorm:"not null" json:"hours"`
	Note            string         `gorm:"size:500" json:"note"`
	Status          EntryStatus    `gorm:"not null;size:20;default:'draft'" json:"status"`
	RejectionReason string         `gorm:"size:500" json:"rejection_reason"`
	// Who entered the record; differs from UserID when an admin logs
	// time on an employee's behalf.
	CreatedBy uint `gorm:"not null" json:"created_by"`
}

// Editable reports whether the owner may still change the entry.
func (e *TimeEntry) Editable() bool {
	return e.Status == StatusDraft || e.Status == StatusRejected
}

// CanTransition reports whether the status state machine allows moving
// from the entry's current status to the target. Approved is terminal;
// rejected entries return to draft only through an owner edit.
func (e *TimeEntry) CanTransition(to EntryStatus) bool {
	switch e.Status {
	case StatusDraft:
		return to == StatusSubmitted
	case StatusSubmitted:
		return to == StatusApproved || to == StatusRejected
	case StatusRejected:
		return to == StatusDraft
	}
	return false
}
