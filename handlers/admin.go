package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"parktime/config"
	"parktime/database"
	"parktime/middleware"
	"parktime/models"
	"parktime/services"
)

// AdminHandler serves the user, work code, business rule and audit
// trail screens.
type AdminHandler struct {
	config    *config.Config
	templates map[string]*template.Template
	users     *services.UserService
	codes     *services.WorkCodeService
	rules     *services.RuleService
}

func NewAdminHandler(cfg *config.Config, templates map[string]*template.Template, users *services.UserService, codes *services.WorkCodeService, rules *services.RuleService) *AdminHandler {
	return &AdminHandler{
		config:    cfg,
		templates: templates,
		users:     users,
		codes:     codes,
		rules:     rules,
	}
}

func (h *AdminHandler) UsersPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	showInactive := r.URL.Query().Get("show_inactive") == "1"
	users, err := h.users.List(user, showInactive)
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	data := map[string]interface{}{
		"User":         user,
		"Users":        users,
		"ShowInactive": showInactive,
		"Error":        r.URL.Query().Get("error"),
		"Success":      r.URL.Query().Get("success"),
	}
	h.templates["users"].ExecuteTemplate(w, "base", data)
}

func userPayloadFromForm(r *http.Request) services.UserPayload {
	p := services.UserPayload{
		Username: r.FormValue("username"),
		FullName: r.FormValue("full_name"),
		Role:     models.Role(r.FormValue("role")),
		Active:   r.FormValue("active") != "0",
	}
	if managerID, ok := parseID(r.FormValue("manager_id")); ok {
		p.ManagerID = &managerID
	}
	return p
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/users?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	if _, err := h.users.Create(user, userPayloadFromForm(r), r.FormValue("password")); err != nil {
		redirectErr(w, r, "/admin/users", err)
		return
	}

	redirectOK(w, r, "/admin/users", "User created")
}

func (h *AdminHandler) EditUserPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	userID, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		http.Redirect(w, r, "/admin/users?error=User+not+found", http.StatusSeeOther)
		return
	}

	users, err := h.users.List(user, true)
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	var target *models.User
	var managers []models.User
	for i := range users {
		if users[i].ID == userID {
			target = &users[i]
		}
		if users[i].Active && users[i].ID != userID &&
			(users[i].Role == models.RoleManager || users[i].Role == models.RoleAdmin) {
			managers = append(managers, users[i])
		}
	}
	if target == nil {
		http.Redirect(w, r, "/admin/users?error=User+not+found", http.StatusSeeOther)
		return
	}

	data := map[string]interface{}{
		"User":     user,
		"Target":   target,
		"Managers": managers,
		"Error":    r.URL.Query().Get("error"),
	}
	h.templates["user-edit"].ExecuteTemplate(w, "base", data)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/users?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	userID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/admin/users?error=User+not+found", http.StatusSeeOther)
		return
	}

	if _, err := h.users.Update(user, userID, userPayloadFromForm(r)); err != nil {
		redirectErr(w, r, fmt.Sprintf("/admin/users/edit?id=%d", userID), err)
		return
	}

	redirectOK(w, r, "/admin/users", "User updated")
}

func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/users?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	userID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/admin/users?error=User+not+found", http.StatusSeeOther)
		return
	}

	if _, err := h.users.Deactivate(user, userID); err != nil {
		redirectErr(w, r, "/admin/users", err)
		return
	}

	redirectOK(w, r, "/admin/users", "User deactivated")
}

func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/users?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	userID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/admin/users?error=User+not+found", http.StatusSeeOther)
		return
	}

	if err := h.users.ResetPassword(user, userID, r.FormValue("new_password")); err != nil {
		redirectErr(w, r, fmt.Sprintf("/admin/users/edit?id=%d", userID), err)
		return
	}

	redirectOK(w, r, "/admin/users", "Password reset")
}

func (h *AdminHandler) WorkCodesPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	codes, err := h.codes.List(r.URL.Query().Get("show_inactive") == "1")
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	data := map[string]interface{}{
		"User":      user,
		"WorkCodes": codes,
		"Error":     r.URL.Query().Get("error"),
		"Success":   r.URL.Query().Get("success"),
	}
	h.templates["workcodes"].ExecuteTemplate(w, "base", data)
}

func workCodePayloadFromForm(r *http.Request) services.WorkCodePayload {
	sortOrder, _ := strconv.Atoi(r.FormValue("sort_order"))
	return services.WorkCodePayload{
		Code:        r.FormValue("code"),
		Description: r.FormValue("description"),
		Category:    models.CodeCategory(r.FormValue("category")),
		SortOrder:   sortOrder,
		Active:      r.FormValue("active") != "0",
	}
}

func (h *AdminHandler) CreateWorkCode(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/workcodes?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	if _, err := h.codes.Create(user, workCodePayloadFromForm(r)); err != nil {
		redirectErr(w, r, "/admin/workcodes", err)
		return
	}

	redirectOK(w, r, "/admin/workcodes", "Work code created")
}

func (h *AdminHandler) UpdateWorkCode(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/workcodes?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	codeID, ok := parseID(r.FormValue("id"))
	if !ok {
		http.Redirect(w, r, "/admin/workcodes?error=Work+code+not+found", http.StatusSeeOther)
		return
	}

	if _, err := h.codes.Update(user, codeID, workCodePayloadFromForm(r)); err != nil {
		redirectErr(w, r, "/admin/workcodes", err)
		return
	}

	redirectOK(w, r, "/admin/workcodes", "Work code updated")
}

func (h *AdminHandler) RulesPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	rules, err := h.rules.List(user)
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	data := map[string]interface{}{
		"User":    user,
		"Rules":   rules,
		"Error":   r.URL.Query().Get("error"),
		"Success": r.URL.Query().Get("success"),
	}
	h.templates["rules"].ExecuteTemplate(w, "base", data)
}

func (h *AdminHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/rules?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	if _, err := h.rules.Update(user, r.FormValue("rule_key"), r.FormValue("rule_value")); err != nil {
		redirectErr(w, r, "/admin/rules", err)
		return
	}

	redirectOK(w, r, "/admin/rules", "Rule updated")
}

// AuditPage shows the recent trail, optionally narrowed to one entity
// or one record's full history.
func (h *AdminHandler) AuditPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	entity := models.EntityType(r.URL.Query().Get("entity"))

	var records []models.AuditRecord
	var err error
	if entityID, ok := parseID(r.URL.Query().Get("entity_id")); ok && entity != "" {
		records, err = services.EntityHistory(database.GetDB(), entity, entityID)
	} else {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records, err = services.RecentChanges(database.GetDB(), entity, limit)
	}
	if err != nil {
		redirectErr(w, r, "/dashboard", err)
		return
	}

	data := map[string]interface{}{
		"User":    user,
		"Records": records,
		"Entity":  entity,
	}
	h.templates["audit"].ExecuteTemplate(w, "base", data)
}
