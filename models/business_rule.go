package models

import (
	"time"
)

// Rule keys the service layer consults. The set is fixed; admins edit
// values, not keys.
const (
	RuleMaxDailyHours     = "max_daily_hours"
	RuleMinEntryHours     = "min_entry_hours"
	RuleWeekStartDay      = "week_start_day"
	RuleStandardWeekHours = "standard_work_week_hours"
)

// BusinessRule is a key-value store for configurable policy: hour
// ceilings, week start day, and similar. Values are stored as strings
// and parsed by the service layer; malformed values fall back to the
// seeded defaults rather than breaking validation.
type BusinessRule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	RuleKey     string    `gorm:"uniqueIndex;not null;size:100" json:"rule_key"`
	RuleValue   string    `gorm:"not null;size:255" json:"rule_value"`
	Description string    `gorm:"size:500" json:"description"`
	ValueType   string    `gorm:"not null;size:20;default:'string'" json:"value_type"`
}

// DefaultBusinessRules are seeded on first init.
var DefaultBusinessRules = []BusinessRule{
	{RuleKey: RuleMaxDailyHours, RuleValue: "24", Description: "Maximum hours that can be logged for a single day", ValueType: "decimal"},
	{RuleKey: RuleMinEntryHours, RuleValue: "0.25", Description: "Smallest bookable block of time", ValueType: "decimal"},
	{RuleKey: RuleWeekStartDay, RuleValue: "monday", Description: "First day of the work week", ValueType: "choice"},
	{RuleKey: RuleStandardWeekHours, RuleValue: "40", Description: "Standard number of hours in a work week", ValueType: "decimal"},
}
