package services

import (
	"sort"
	"strconv"
	"time"

	"parktime/models"

	"gorm.io/gorm"
)

// Auditor writes per-field AuditRecord rows for tracked entities. All
// record methods take the transaction handle of the mutation they
// describe; a failed audit write fails the transaction, so the business
// change and its trail commit together or not at all.
type Auditor struct {
	actorID uint
}

func NewAuditor(actor *models.User) *Auditor {
	return &Auditor{actorID: actor.ID}
}

// SnapshotEntry captures the auditable fields of a time entry.
func SnapshotEntry(e *models.TimeEntry) map[string]string {
	return map[string]string{
		"user_id":          formatUint(e.UserID),
		"work_code_id":     formatUint(e.WorkCodeID),
		"date":             e.Date.Format("2006-01-02"),
		"hours":            formatFloat(e.Hours),
		"note":             e.Note,
		"status":           string(e.Status),
		"rejection_reason": e.RejectionReason,
	}
}

// SnapshotUser captures the auditable fields of a user. The password
// hash is deliberately absent; password changes are logged as a single
// redacted field by UserService.
func SnapshotUser(u *models.User) map[string]string {
	managerID := ""
	if u.ManagerID != nil {
		managerID = formatUint(*u.ManagerID)
	}
	return map[string]string{
		"username":   u.Username,
		"full_name":  u.FullName,
		"role":       string(u.Role),
		"manager_id": managerID,
		"active":     strconv.FormatBool(u.Active),
	}
}

// SnapshotWorkCode captures the auditable fields of a work code.
func SnapshotWorkCode(w *models.WorkCode) map[string]string {
	return map[string]string{
		"code":        w.Code,
		"description": w.Description,
		"category":    string(w.Category),
		"sort_order":  strconv.Itoa(w.SortOrder),
		"active":      strconv.FormatBool(w.Active),
	}
}

// changedFields returns the sorted field names whose values differ
// between the two snapshots. A nil snapshot is an empty state, so a
// create diffs against nil-old and a delete against nil-new.
func changedFields(oldState, newState map[string]string) []string {
	keys := make(map[string]bool)
	for k := range oldState {
		keys[k] = true
	}
	for k := range newState {
		keys[k] = true
	}

	var changed []string
	for k := range keys {
		if oldState[k] != newState[k] {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// Record writes one AuditRecord per changed field. It returns nil when
// nothing differs, so callers can invoke it unconditionally.
func (a *Auditor) Record(tx *gorm.DB, action models.AuditAction, entity models.EntityType, entityID uint, oldState, newState map[string]string) error {
	now := time.Now().UTC()
	for _, field := range changedFields(oldState, newState) {
		record := models.AuditRecord{
			CreatedAt:  now,
			EntityType: entity,
			EntityID:   entityID,
			Field:      field,
			OldValue:   oldState[field],
			NewValue:   newState[field],
			Action:     action,
			ActorID:    a.actorID,
		}
		if result := tx.Create(&record); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// RecordField writes a single explicit AuditRecord, used where the
// values cannot come from a snapshot (e.g. redacted password changes).
func (a *Auditor) RecordField(tx *gorm.DB, action models.AuditAction, entity models.EntityType, entityID uint, field, oldValue, newValue string) error {
	record := models.AuditRecord{
		CreatedAt:  time.Now().UTC(),
		EntityType: entity,
		EntityID:   entityID,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		Action:     action,
		ActorID:    a.actorID,
	}
	if result := tx.Create(&record); result.Error != nil {
		return result.Error
	}
	return nil
}

// EntityHistory returns the full trail for one record, oldest first.
func EntityHistory(db *gorm.DB, entity models.EntityType, entityID uint) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	result := db.Where("entity_type = ? AND entity_id = ?", entity, entityID).
		Order("id asc").
		Find(&records)
	if result.Error != nil {
		return nil, &PersistenceError{Op: "load audit history", Err: result.Error}
	}
	return records, nil
}

// RecentChanges returns the latest audit records across all entities,
// newest first, optionally filtered by entity type.
func RecentChanges(db *gorm.DB, entity models.EntityType, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := db.Preload("Actor").Order("id desc").Limit(limit)
	if entity != "" {
		query = query.Where("entity_type = ?", entity)
	}

	var records []models.AuditRecord
	if result := query.Find(&records); result.Error != nil {
		return nil, &PersistenceError{Op: "load recent audit records", Err: result.Error}
	}
	return records, nil
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
