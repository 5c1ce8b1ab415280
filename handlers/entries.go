package handlers

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"parktime/config"
	"parktime/middleware"
	"parktime/services"
)

type EntryHandler struct {
	config    *config.Config
	templates map[string]*template.Template
	entries   *services.TimeEntryService
	codes     *services.WorkCodeService
}

func NewEntryHandler(cfg *config.Config, templates map[string]*template.Template, entries *services.TimeEntryService, codes *services.WorkCodeService) *EntryHandler {
	return &EntryHandler{
		config:    cfg,
		templates: templates,
		entries:   entries,
		codes:     codes,
	}
}

// monthRange returns the first day of the requested month and the first
// day of the next, defaulting to the current month.
func monthRange(r *http.Request) (time.Time, time.Time, int, int) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())

	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y >= 2000 && y <= 2100 {
		year = y
	}
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = m
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1), month, year
}

// weekParam picks the anchor day for week views: any date inside the
// wanted week, defaulting to today.
func weekParam(r *http.Request) time.Time {
	if day, ok := parseDate(r.URL.Query().Get("week")); ok {
		return day
	}
	return time.Now().UTC()
}

// weekDays lists the seven dates of the week starting at from.
func weekDays(from time.Time) []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = from.AddDate(0, 0, i)
	}
	return days
}

// Dashboard shows the user's entries and totals for one work week, with
// links to the previous and next week.
func (h *EntryHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	week, err := h.entries.UserWeek(user, user.ID, weekParam(r))
	if err != nil {
		week = &services.WeekSummary{DayHours: map[string]float64{}}
	}

	data := map[string]interface{}{
		"User":     user,
		"Week":     week,
		"Days":     weekDays(week.From),
		"PrevWeek": week.From.AddDate(0, 0, -7).Format("2006-01-02"),
		"NextWeek": week.From.AddDate(0, 0, 7).Format("2006-01-02"),
		"Error":    r.URL.Query().Get("error"),
		"Success":  r.URL.Query().Get("success"),
	}
	h.templates["dashboard"].ExecuteTemplate(w, "base", data)
}

// TeamPage shows a manager their reports' hours for one work week,
// one row per member with per-day and weekly totals.
func (h *EntryHandler) TeamPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	team, err := h.entries.TeamWeek(user, weekParam(r))
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	data := map[string]interface{}{
		"User":     user,
		"Team":     team,
		"Days":     weekDays(team.From),
		"PrevWeek": team.From.AddDate(0, 0, -7).Format("2006-01-02"),
		"NextWeek": team.From.AddDate(0, 0, 7).Format("2006-01-02"),
		"Error":    r.URL.Query().Get("error"),
		"Success":  r.URL.Query().Get("success"),
	}
	h.templates["team"].ExecuteTemplate(w, "base", data)
}

func (h *EntryHandler) NewEntryPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	codes, _ := h.codes.List(false)

	data := map[string]interface{}{
		"User":      user,
		"WorkCodes": codes,
		"Error":     r.URL.Query().Get("error"),
		"Today":     time.Now().Format("2006-01-02"),
	}
	h.templates["entry-form"].ExecuteTemplate(w, "base", data)
}

func entryPayloadFromForm(r *http.Request) (services.EntryPayload, string) {
	var p services.EntryPayload

	date, ok := parseDate(r.FormValue("date"))
	if !ok {
		return p, "Invalid date format"
	}
	codeID, ok := parseID(r.FormValue("work_code_id"))
	if !ok {
		return p, "Select a work code"
	}
	hours, err := strconv.ParseFloat(r.FormValue("hours"), 64)
	if err != nil {
		return p, "Invalid hours"
	}

	p.Date = date
	p.WorkCodeID = codeID
	p.Hours = hours
	p.Note = r.FormValue("note")
	if userID, ok := parseID(r.FormValue("user_id")); ok {
		p.UserID = userID
	}
	return p, ""
}

func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/entries/new?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	payload, msg := entryPayloadFromForm(r)
	if msg != "" {
		http.Redirect(w, r, "/entries/new?error="+msg, http.StatusSeeOther)
		return
	}

	if _, err := h.entries.Create(user, payload); err != nil {
		redirectErr(w, r, "/entries/new", err)
		return
	}

	redirectOK(w, r, "/dashboard", "Entry created")
}

func (h *EntryHandler) EditEntryPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	entryID, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		http.Redirect(w, r, "/dashboard?error=Entry+not+found", http.StatusSeeOther)
		return
	}

	entry, err := h.entries.Get(user, entryID)
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	codes, _ := h.codes.List(false)

	data := map[string]interface{}{
		"User":      user,
		"Entry":     entry,
		"WorkCodes": codes,
		"Error":     r.URL.Query().Get("error"),
	}
	h.templates["entry-edit"].ExecuteTemplate(w, "base", data)
}

func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	entryID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/dashboard?error=Entry+not+found", http.StatusSeeOther)
		return
	}

	payload, msg := entryPayloadFromForm(r)
	if msg != "" {
		http.Redirect(w, r, fmt.Sprintf("/entries/edit?id=%d&error=%s", entryID, msg), http.StatusSeeOther)
		return
	}

	if _, err := h.entries.Update(user, entryID, payload); err != nil {
		redirectErr(w, r, fmt.Sprintf("/entries/edit?id=%d", entryID), err)
		return
	}

	redirectOK(w, r, "/dashboard", "Entry updated")
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	entryID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/dashboard?error=Entry+not+found", http.StatusSeeOther)
		return
	}

	if err := h.entries.Delete(user, entryID); err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	redirectOK(w, r, "/dashboard", "Entry deleted")
}

func (h *EntryHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	entryID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/dashboard?error=Entry+not+found", http.StatusSeeOther)
		return
	}

	if _, err := h.entries.Submit(user, entryID); err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	redirectOK(w, r, "/dashboard", "Entry submitted for approval")
}

// ApprovalsPage shows the manager's queue of submitted entries.
func (h *EntryHandler) ApprovalsPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	pending, err := h.entries.ListPending(user)
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	data := map[string]interface{}{
		"User":    user,
		"Pending": pending,
		"Error":   r.URL.Query().Get("error"),
		"Success": r.URL.Query().Get("success"),
	}
	h.templates["approvals"].ExecuteTemplate(w, "base", data)
}

func (h *EntryHandler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/approvals?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	entryID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/approvals?error=Entry+not+found", http.StatusSeeOther)
		return
	}

	if _, err := h.entries.Approve(user, entryID); err != nil {
		redirectErr(w, r, "/approvals", err)
		return
	}

	redirectOK(w, r, "/approvals", "Entry approved")
}

func (h *EntryHandler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/approvals?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	entryID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/approvals?error=Entry+not+found", http.StatusSeeOther)
		return
	}

	if _, err := h.entries.Reject(user, entryID, r.FormValue("reason")); err != nil {
		redirectErr(w, r, "/approvals", err)
		return
	}

	redirectOK(w, r, "/approvals", "Entry rejected")
}

// ExportCSV streams one user's entries for a month. Managers export
// their reports, admins anyone.
func (h *EntryHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	userID := user.ID
	if id, ok := parseID(r.URL.Query().Get("user_id")); ok {
		userID = id
	}
	from, to, month, year := monthRange(r)

	entries, err := h.entries.ListForUser(user, userID, from, to)
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=entries-%d-%02d.csv", year, month))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"Date", "Code", "Hours", "Status", "Note"})
	for _, entry := range entries {
		code := ""
		if entry.WorkCode != nil {
			code = entry.WorkCode.Code
		}
		writer.Write([]string{
			entry.Date.Format("2006-01-02"),
			code,
			strconv.FormatFloat(entry.Hours, 'f', 2, 64),
			string(entry.Status),
			entry.Note,
		})
	}
}
