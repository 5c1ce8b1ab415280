package models

import (
	"time"
)

// CodeCategory groups work codes for reporting and payroll rules.
type CodeCategory string

const (
	CategoryWork        CodeCategory = "work"
	CategoryLeavePaid   CodeCategory = "leave_paid"
	CategoryLeaveUnpaid CodeCategory = "leave_unpaid"
)

func (c CodeCategory) Valid() bool {
	switch c {
	case CategoryWork, CategoryLeavePaid, CategoryLeaveUnpaid:
		return true
	}
	return false
}

// WorkCode categorizes time entries (REG, OT, VAC, ...). Code and
// Category are frozen once any entry references the work code; only
// Description, SortOrder and Active may still change. Inactive codes
// stay in the table so historical entries keep their reference.
type WorkCode struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Code        string       `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Description string       `gorm:"not null;size:100" json:"description"`
	Category    CodeCategory `gorm:"not null;size:20;default:'work'" json:"category"`
	SortOrder   int          `gorm:"not null;default:0" json:"sort_order"`
	Active      bool         `gorm:"not null;default:true" json:"active"`

	TimeEntries []TimeEntry `gorm:"foreignKey:WorkCodeID" json:"time_entries,omitempty"`
}

func (w *WorkCode) IsLeave() bool {
	return w.Category == CategoryLeavePaid || w.Category == CategoryLeaveUnpaid
}

func (w *WorkCode) IsPaid() bool {
	return w.Category == CategoryWork || w.Category == CategoryLeavePaid
}

// DefaultWorkCodes are seeded on first init for the parking division.
var DefaultWorkCodes = []WorkCode{
	{Code: "REG", Description: "Regular Hours", Category: CategoryWork, SortOrder: 1},
	{Code: "OT", Description: "Overtime", Category: CategoryWork, SortOrder: 2},
	{Code: "TRAINING", Description: "Training", Category: CategoryWork, SortOrder: 3},
	{Code: "VAC", Description: "Vacation", Category: CategoryLeavePaid, SortOrder: 10},
	{Code: "SICK", Description: "Sick Leave", Category: CategoryLeavePaid, SortOrder: 11},
	{Code: "PERSONAL", Description: "Personal Day", Category: CategoryLeavePaid, SortOrder: 12},
	{Code: "HOLIDAY", Description: "Holiday", Category: CategoryLeavePaid, SortOrder: 13},
	{Code: "JURY", Description: "Jury Duty", Category: CategoryLeavePaid, SortOrder: 14},
	{Code: "BEREAVEMENT", Description: "Bereavement", Category: CategoryLeavePaid, SortOrder: 15},
	{Code: "LWOP", Description: "Leave Without Pay", Category: CategoryLeaveUnpaid, SortOrder: 20},
}
