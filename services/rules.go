package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"parktime/models"

	"gorm.io/gorm"
)

// Rules are the parsed business rules the services consult on every
// mutation. Missing or malformed rows fall back to the seeded defaults
// so a bad value can never brick validation.
type Rules struct {
	MaxDailyHours     float64
	MinEntryHours     float64
	WeekStartDay      time.Weekday
	StandardWeekHours float64
}

func defaultRules() Rules {
	return Rules{
		MaxDailyHours:     models.MaxDailyHours,
		MinEntryHours:     0.25,
		WeekStartDay:      time.Monday,
		StandardWeekHours: 40,
	}
}

// loadRules reads the business_rules table. The configured daily
// ceiling may tighten the 24-hour invariant but never loosen it.
func loadRules(tx *gorm.DB) Rules {
	rules := defaultRules()

	var rows []models.BusinessRule
	if result := tx.Find(&rows); result.Error != nil {
		return rules
	}

	for _, row := range rows {
		switch row.RuleKey {
		case models.RuleMaxDailyHours:
			if v, err := strconv.ParseFloat(row.RuleValue, 64); err == nil && v > 0 && v <= models.MaxDailyHours {
				rules.MaxDailyHours = v
			}
		case models.RuleMinEntryHours:
			if v, err := strconv.ParseFloat(row.RuleValue, 64); err == nil && v > 0 && v <= models.MaxDailyHours {
				rules.MinEntryHours = v
			}
		case models.RuleWeekStartDay:
			if day, ok := parseWeekday(row.RuleValue); ok {
				rules.WeekStartDay = day
			}
		case models.RuleStandardWeekHours:
			if v, err := strconv.ParseFloat(row.RuleValue, 64); err == nil && v > 0 && v <= 168 {
				rules.StandardWeekHours = v
			}
		}
	}
	return rules
}

// parseWeekday accepts the week start days payroll systems use.
func parseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "saturday":
		return time.Saturday, true
	}
	return time.Sunday, false
}

// RuleService lets admins tune business rules. Every change is audited
// like any other tracked entity.
type RuleService struct {
	db *gorm.DB
}

func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{db: db}
}

func (s *RuleService) List(actor *models.User) ([]models.BusinessRule, error) {
	if !actor.Role.Can(models.ActionRuleManage) {
		return nil, &AuthorizationError{Action: models.ActionRuleManage}
	}

	var rules []models.BusinessRule
	if result := s.db.Order("rule_key asc").Find(&rules); result.Error != nil {
		return nil, &PersistenceError{Op: "list business rules", Err: result.Error}
	}
	return rules, nil
}

// Update changes one rule's value. The key set is fixed; unknown keys
// are not found, bad values are validation failures.
func (s *RuleService) Update(actor *models.User, key, value string) (*models.BusinessRule, error) {
	if !actor.Role.Can(models.ActionRuleManage) {
		return nil, &AuthorizationError{Action: models.ActionRuleManage}
	}

	value = strings.TrimSpace(value)
	if err := validateRuleValue(key, value); err != nil {
		return nil, err
	}

	var rule *models.BusinessRule
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.BusinessRule
		if result := tx.Where("rule_key = ?", key).First(&existing); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "business rule"}
			}
			return result.Error
		}
		if existing.RuleValue == value {
			rule = &existing
			return nil
		}

		oldValue := existing.RuleValue
		existing.RuleValue = value
		if result := tx.Save(&existing); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		if err := audit.RecordField(tx, models.AuditUpdate, models.EntityBusinessRule, existing.ID, existing.RuleKey, oldValue, value); err != nil {
			return err
		}
		rule = &existing
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("update business rule", err)
	}
	return rule, nil
}

func validateRuleValue(key, value string) error {
	switch key {
	case models.RuleMaxDailyHours:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v <= 0 || v > models.MaxDailyHours {
			return &ValidationError{Field: key, Reason: "must be a number between 0 and 24"}
		}
	case models.RuleMinEntryHours:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v <= 0 || v > models.MaxDailyHours {
			return &ValidationError{Field: key, Reason: "must be a number between 0 and 24"}
		}
	case models.RuleWeekStartDay:
		if _, ok := parseWeekday(value); !ok {
			return &ValidationError{Field: key, Reason: "must be sunday, monday or saturday"}
		}
	case models.RuleStandardWeekHours:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v <= 0 || v > 168 {
			return &ValidationError{Field: key, Reason: "must be a number between 0 and 168"}
		}
	}
	return nil
}
