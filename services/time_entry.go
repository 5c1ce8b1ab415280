package services

import (
	"errors"
	"math"
	"time"

	"parktime/models"

	"gorm.io/gorm"
)

// TimeEntryService owns the time entry lifecycle: create and edit by
// the owner while draft or rejected, submit, then approve or reject by
// the owner's manager. Every mutation and its audit records commit in
// one transaction.
type TimeEntryService struct {
	db *gorm.DB
}

func NewTimeEntryService(db *gorm.DB) *TimeEntryService {
	return &TimeEntryService{db: db}
}

// EntryPayload is the full set of caller-editable entry fields.
type EntryPayload struct {
	UserID     uint
	WorkCodeID uint
	Date       time.Time
	Hours      float64
	Note       string
}

// Create records a new draft entry. Employees create entries for
// themselves; admins may enter time on anyone's behalf.
func (s *TimeEntryService) Create(actor *models.User, p EntryPayload) (*models.TimeEntry, error) {
	if !actor.Role.Can(models.ActionEntryCreate) {
		return nil, &AuthorizationError{Action: models.ActionEntryCreate}
	}

	if p.UserID == 0 {
		p.UserID = actor.ID
	}
	if p.UserID != actor.ID && !actor.IsAdmin() {
		return nil, &AuthorizationError{Action: models.ActionEntryCreate, Reason: "entries can only be created for yourself"}
	}
	date := dateOnly(p.Date)

	var entry *models.TimeEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rules := loadRules(tx)
		if err := validateHours(p.Hours, rules); err != nil {
			return err
		}
		if err := requireActiveUser(tx, p.UserID); err != nil {
			return err
		}
		if err := requireActiveWorkCode(tx, p.WorkCodeID); err != nil {
			return err
		}
		if err := checkDailyCeiling(tx, p.UserID, date, p.Hours, 0, rules); err != nil {
			return err
		}

		entry = &models.TimeEntry{
			UserID:     p.UserID,
			WorkCodeID: p.WorkCodeID,
			Date:       date,
			Hours:      p.Hours,
			Note:       p.Note,
			Status:     models.StatusDraft,
			CreatedBy:  actor.ID,
		}
		if result := tx.Create(entry); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		return audit.Record(tx, models.AuditCreate, models.EntityTimeEntry, entry.ID, nil, SnapshotEntry(entry))
	})
	if err != nil {
		return nil, wrapPersistence("create time entry", err)
	}
	return entry, nil
}

// Update replaces the editable fields of a draft or rejected entry.
// Editing a rejected entry returns it to draft for resubmission.
func (s *TimeEntryService) Update(actor *models.User, entryID uint, p EntryPayload) (*models.TimeEntry, error) {
	if !actor.Role.Can(models.ActionEntryEdit) {
		return nil, &AuthorizationError{Action: models.ActionEntryEdit}
	}
	date := dateOnly(p.Date)

	var entry *models.TimeEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = loadEntry(tx, entryID)
		if err != nil {
			return err
		}
		if entry.UserID != actor.ID && !actor.IsAdmin() {
			return &AuthorizationError{Action: models.ActionEntryEdit, Reason: "not your entry"}
		}
		if !entry.Editable() {
			return &ConflictError{From: entry.Status, To: models.StatusDraft}
		}

		rules := loadRules(tx)
		if err := validateHours(p.Hours, rules); err != nil {
			return err
		}
		if err := requireActiveWorkCode(tx, p.WorkCodeID); err != nil {
			return err
		}
		if err := checkDailyCeiling(tx, entry.UserID, date, p.Hours, entry.ID, rules); err != nil {
			return err
		}

		oldState := SnapshotEntry(entry)

		entry.WorkCodeID = p.WorkCodeID
		entry.Date = date
		entry.Hours = p.Hours
		entry.Note = p.Note
		if entry.Status == models.StatusRejected {
			entry.Status = models.StatusDraft
			entry.RejectionReason = ""
		}

		if result := tx.Save(entry); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		return audit.Record(tx, models.AuditUpdate, models.EntityTimeEntry, entry.ID, oldState, SnapshotEntry(entry))
	})
	if err != nil {
		return nil, wrapPersistence("update time entry", err)
	}
	return entry, nil
}

// Delete soft-deletes a draft or rejected entry. Submitted and approved
// entries are part of the approval record and cannot be removed.
func (s *TimeEntryService) Delete(actor *models.User, entryID uint) error {
	if !actor.Role.Can(models.ActionEntryDelete) {
		return &AuthorizationError{Action: models.ActionEntryDelete}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		entry, err := loadEntry(tx, entryID)
		if err != nil {
			return err
		}
		if entry.UserID != actor.ID && !actor.IsAdmin() {
			return &AuthorizationError{Action: models.ActionEntryDelete, Reason: "not your entry"}
		}
		if !entry.Editable() {
			return &ConflictError{From: entry.Status, To: models.StatusDraft}
		}

		audit := NewAuditor(actor)
		if err := audit.Record(tx, models.AuditDelete, models.EntityTimeEntry, entry.ID, SnapshotEntry(entry), nil); err != nil {
			return err
		}

		return tx.Delete(entry).Error
	})
	return wrapPersistence("delete time entry", err)
}

// Submit moves a draft entry into the manager's approval queue.
func (s *TimeEntryService) Submit(actor *models.User, entryID uint) (*models.TimeEntry, error) {
	if !actor.Role.Can(models.ActionEntrySubmit) {
		return nil, &AuthorizationError{Action: models.ActionEntrySubmit}
	}

	var entry *models.TimeEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = loadEntry(tx, entryID)
		if err != nil {
			return err
		}
		if entry.UserID != actor.ID && !actor.IsAdmin() {
			return &AuthorizationError{Action: models.ActionEntrySubmit, Reason: "not your entry"}
		}
		return s.transition(tx, actor, entry, models.StatusSubmitted, models.AuditUpdate, "")
	})
	if err != nil {
		return nil, wrapPersistence("submit time entry", err)
	}
	return entry, nil
}

// Approve marks a submitted entry approved. Only the owner's manager or
// an admin may approve; approving an already-approved entry is a
// conflict, never a silent success.
func (s *TimeEntryService) Approve(actor *models.User, entryID uint) (*models.TimeEntry, error) {
	return s.review(actor, entryID, models.StatusApproved, models.ActionEntryApprove, models.AuditApprove, "")
}

// Reject returns a submitted entry to its owner with a reason. The
// owner edits and resubmits, or abandons it.
func (s *TimeEntryService) Reject(actor *models.User, entryID uint, reason string) (*models.TimeEntry, error) {
	return s.review(actor, entryID, models.StatusRejected, models.ActionEntryReject, models.AuditReject, reason)
}

func (s *TimeEntryService) review(actor *models.User, entryID uint, target models.EntryStatus, action models.Action, auditAction models.AuditAction, reason string) (*models.TimeEntry, error) {
	if !actor.Role.Can(action) {
		return nil, &AuthorizationError{Action: action}
	}

	var entry *models.TimeEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = loadEntry(tx, entryID)
		if err != nil {
			return err
		}

		var owner models.User
		if result := tx.First(&owner, entry.UserID); result.Error != nil {
			return result.Error
		}
		if !actor.Manages(&owner) {
			return &AuthorizationError{Action: action, Reason: "entry owner is not on your team"}
		}

		return s.transition(tx, actor, entry, target, auditAction, reason)
	})
	if err != nil {
		return nil, wrapPersistence("review time entry", err)
	}
	return entry, nil
}

// transition applies a status change plus its audit records on tx.
func (s *TimeEntryService) transition(tx *gorm.DB, actor *models.User, entry *models.TimeEntry, target models.EntryStatus, auditAction models.AuditAction, reason string) error {
	if !entry.CanTransition(target) {
		return &ConflictError{From: entry.Status, To: target}
	}

	oldState := SnapshotEntry(entry)
	entry.Status = target
	if target == models.StatusRejected {
		entry.RejectionReason = reason
	}

	if result := tx.Save(entry); result.Error != nil {
		return result.Error
	}

	audit := NewAuditor(actor)
	return audit.Record(tx, auditAction, models.EntityTimeEntry, entry.ID, oldState, SnapshotEntry(entry))
}

// Get loads one entry the actor is allowed to see.
func (s *TimeEntryService) Get(actor *models.User, entryID uint) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	result := s.db.Preload("WorkCode").Preload("User").First(&entry, entryID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "time entry", ID: entryID}
		}
		return nil, &PersistenceError{Op: "load time entry", Err: result.Error}
	}

	if entry.UserID != actor.ID {
		if entry.User == nil || !actor.Role.Can(models.ActionEntryViewAll) || !actor.Manages(entry.User) {
			return nil, &AuthorizationError{Action: models.ActionEntryViewAll, Reason: "not your entry"}
		}
	}
	return &entry, nil
}

// ListForUser returns a user's entries in [from, to], newest first.
// Employees see only their own; managers their reports; admins anyone.
func (s *TimeEntryService) ListForUser(actor *models.User, userID uint, from, to time.Time) ([]models.TimeEntry, error) {
	if userID != actor.ID {
		var owner models.User
		if result := s.db.First(&owner, userID); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Entity: "user", ID: userID}
			}
			return nil, &PersistenceError{Op: "load user", Err: result.Error}
		}
		if !actor.Role.Can(models.ActionEntryViewAll) || !actor.Manages(&owner) {
			return nil, &AuthorizationError{Action: models.ActionEntryViewAll}
		}
	}

	query := s.db.Preload("WorkCode").Where("user_id = ?", userID)
	if !from.IsZero() {
		query = query.Where("date >= ?", dateOnly(from))
	}
	if !to.IsZero() {
		query = query.Where("date <= ?", dateOnly(to))
	}

	var entries []models.TimeEntry
	if result := query.Order("date desc, id desc").Find(&entries); result.Error != nil {
		return nil, &PersistenceError{Op: "list time entries", Err: result.Error}
	}
	return entries, nil
}

// ListPending returns submitted entries awaiting the actor's review:
// the whole queue for admins, their own reports for managers.
func (s *TimeEntryService) ListPending(actor *models.User) ([]models.TimeEntry, error) {
	if !actor.Role.Can(models.ActionEntryApprove) {
		return nil, &AuthorizationError{Action: models.ActionEntryApprove}
	}

	query := s.db.Preload("User").Preload("WorkCode").
		Where("time_entries.status = ?", models.StatusSubmitted)
	if !actor.IsAdmin() {
		query = query.Joins("JOIN users ON users.id = time_entries.user_id").
			Where("users.manager_id = ?", actor.ID)
	}

	var entries []models.TimeEntry
	if result := query.Order("time_entries.date asc, time_entries.id asc").Find(&entries); result.Error != nil {
		return nil, &PersistenceError{Op: "list pending entries", Err: result.Error}
	}
	return entries, nil
}

// DailyTotal reports the counted hours a user already has on a date.
func (s *TimeEntryService) DailyTotal(userID uint, date time.Time) (float64, error) {
	return dailyTotal(s.db, userID, dateOnly(date), 0)
}

// WeekSummary is one user's entries over a single work week, with per-day
// and weekly totals. Rejected entries are listed but not counted.
type WeekSummary struct {
	From     time.Time
	To       time.Time
	Entries  []models.TimeEntry
	DayHours map[string]float64
	Total    float64
}

// MemberWeek is one team member's counted hours over a work week.
type MemberWeek struct {
	User     models.User
	DayHours map[string]float64
	Total    float64
}

// TeamWeekSummary is the manager's weekly overview of their reports.
type TeamWeekSummary struct {
	From    time.Time
	To      time.Time
	Members []MemberWeek
}

// WeekRange returns the bounds of the work week containing day, per the
// configured week start day.
func (s *TimeEntryService) WeekRange(day time.Time) (time.Time, time.Time) {
	rules := loadRules(s.db)
	return weekBounds(day, rules.WeekStartDay)
}

// UserWeek returns a user's entries and totals for the week containing
// day. Visibility follows ListForUser.
func (s *TimeEntryService) UserWeek(actor *models.User, userID uint, day time.Time) (*WeekSummary, error) {
	from, to := s.WeekRange(day)
	entries, err := s.ListForUser(actor, userID, from, to)
	if err != nil {
		return nil, err
	}

	summary := &WeekSummary{From: from, To: to, Entries: entries, DayHours: make(map[string]float64)}
	for _, e := range entries {
		if e.Status == models.StatusRejected {
			continue
		}
		summary.DayHours[e.Date.Format("2006-01-02")] += e.Hours
		summary.Total += e.Hours
	}
	return summary, nil
}

// TeamWeek returns per-member weekly totals for the actor's team:
// their active reports for managers, every active user for admins.
func (s *TimeEntryService) TeamWeek(actor *models.User, day time.Time) (*TeamWeekSummary, error) {
	if !actor.Role.Can(models.ActionEntryViewAll) {
		return nil, &AuthorizationError{Action: models.ActionEntryViewAll}
	}
	from, to := s.WeekRange(day)

	memberQuery := s.db.Where("active = ?", true)
	if !actor.IsAdmin() {
		memberQuery = memberQuery.Where("manager_id = ?", actor.ID)
	}
	var members []models.User
	if result := memberQuery.Order("full_name asc, username asc").Find(&members); result.Error != nil {
		return nil, &PersistenceError{Op: "list team members", Err: result.Error}
	}

	summary := &TeamWeekSummary{From: from, To: to}
	if len(members) == 0 {
		return summary, nil
	}

	ids := make([]uint, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	var entries []models.TimeEntry
	result := s.db.Where("user_id IN ? AND date >= ? AND date <= ?", ids, from, to).
		Where("status <> ?", models.StatusRejected).
		Find(&entries)
	if result.Error != nil {
		return nil, &PersistenceError{Op: "list team entries", Err: result.Error}
	}

	byUser := make(map[uint][]models.TimeEntry)
	for _, e := range entries {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}
	for _, member := range members {
		week := MemberWeek{User: member, DayHours: make(map[string]float64)}
		for _, e := range byUser[member.ID] {
			week.DayHours[e.Date.Format("2006-01-02")] += e.Hours
			week.Total += e.Hours
		}
		summary.Members = append(summary.Members, week)
	}
	return summary, nil
}

// weekBounds returns the first and last day of the work week containing
// day, given the configured week start.
func weekBounds(day time.Time, start time.Weekday) (time.Time, time.Time) {
	d := dateOnly(day)
	offset := (int(d.Weekday()) - int(start) + 7) % 7
	from := d.AddDate(0, 0, -offset)
	return from, from.AddDate(0, 0, 6)
}

// Validation helpers.

func validateHours(hours float64, rules Rules) error {
	if hours <= 0 {
		return &ValidationError{Field: "hours", Reason: "must be greater than zero"}
	}
	if hours < rules.MinEntryHours {
		return &ValidationError{Field: "hours", Reason: "must be at least " + formatFloat(rules.MinEntryHours)}
	}
	if hours > rules.MaxDailyHours {
		return &ValidationError{Field: "hours", Reason: "cannot exceed " + formatFloat(rules.MaxDailyHours)}
	}
	// Quarter-hour granularity keeps payroll math exact.
	if math.Abs(hours*4-math.Round(hours*4)) > 1e-9 {
		return &ValidationError{Field: "hours", Reason: "must be in quarter-hour steps"}
	}
	return nil
}

func requireActiveUser(tx *gorm.DB, userID uint) error {
	var user models.User
	if result := tx.First(&user, userID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "user", ID: userID}
		}
		return result.Error
	}
	if !user.Active {
		return &ValidationError{Field: "user_id", Reason: "user is deactivated"}
	}
	return nil
}

func requireActiveWorkCode(tx *gorm.DB, workCodeID uint) error {
	var code models.WorkCode
	if result := tx.First(&code, workCodeID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &ValidationError{Field: "work_code_id", Reason: "unknown work code"}
		}
		return result.Error
	}
	if !code.Active {
		return &ValidationError{Field: "work_code_id", Reason: "work code is inactive"}
	}
	return nil
}

// dailyTotal sums draft+submitted+approved hours for the user on date,
// excluding excludeID (the entry being edited). Rejected and deleted
// entries do not count toward the ceiling.
func dailyTotal(tx *gorm.DB, userID uint, date time.Time, excludeID uint) (float64, error) {
	var total float64
	query := tx.Model(&models.TimeEntry{}).
		Where("user_id = ? AND date = ?", userID, date).
		Where("status IN ?", []models.EntryStatus{models.StatusDraft, models.StatusSubmitted, models.StatusApproved})
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if result := query.Select("COALESCE(SUM(hours), 0)").Scan(&total); result.Error != nil {
		return 0, result.Error
	}
	return total, nil
}

func checkDailyCeiling(tx *gorm.DB, userID uint, date time.Time, hours float64, excludeID uint, rules Rules) error {
	total, err := dailyTotal(tx, userID, date, excludeID)
	if err != nil {
		return err
	}
	if total+hours > rules.MaxDailyHours {
		return &ValidationError{Field: "hours", Reason: "total hours for the day would exceed " + formatFloat(rules.MaxDailyHours)}
	}
	return nil
}

func loadEntry(tx *gorm.DB, entryID uint) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	if result := tx.First(&entry, entryID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "time entry", ID: entryID}
		}
		return nil, result.Error
	}
	return &entry, nil
}

// dateOnly normalizes a timestamp to midnight UTC so date equality
// behaves the same in Postgres and in tests.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// wrapPersistence passes typed service failures through and wraps raw
// database errors so callers only ever see the documented error kinds.
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *ValidationError, *AuthorizationError, *ConflictError, *NotFoundError, *PersistenceError:
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
