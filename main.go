package main

import (
	"html/template"
	"log"
	"net/http"

	"parktime/config"
	"parktime/database"
	"parktime/handlers"
	"parktime/middleware"
	"parktime/models"
	"parktime/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize JWT secret
	middleware.SetJWTSecret(cfg.JWTSecret)

	// Initialize database
	if err := database.Init(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	// Parse templates - each page template paired with base
	templates := make(map[string]*template.Template)
	pages := []string{
		"login", "change-password", "dashboard", "team",
		"entry-form", "entry-edit", "approvals",
		"users", "user-edit", "workcodes", "rules", "audit",
	}
	for _, page := range pages {
		templates[page] = template.Must(template.ParseFiles(
			"templates/base.html",
			"templates/"+page+".html",
		))
	}

	// Services carry the business rules; handlers stay thin
	userService := services.NewUserService(db)
	entryService := services.NewTimeEntryService(db)
	codeService := services.NewWorkCodeService(db)
	ruleService := services.NewRuleService(db)

	authHandler := handlers.NewAuthHandler(cfg, templates, userService)
	entryHandler := handlers.NewEntryHandler(cfg, templates, entryService, codeService)
	adminHandler := handlers.NewAdminHandler(cfg, templates, userService, codeService, ruleService)

	// Setup router
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	// Public routes
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	router.Get("/login", authHandler.LoginPage)
	router.Post("/login", authHandler.Login)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)

		r.Get("/logout", authHandler.Logout)

		// Password change routes (accessible even when password change required)
		r.Get("/change-password", authHandler.ChangePasswordPage)
		r.Post("/change-password", authHandler.ChangePassword)

		// Routes that require password to be changed first
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePasswordChange)

			r.Get("/dashboard", entryHandler.Dashboard)

			// Time entries (all authenticated users)
			r.Get("/entries/new", entryHandler.NewEntryPage)
			r.Post("/entries/new", entryHandler.CreateEntry)
			r.Get("/entries/edit", entryHandler.EditEntryPage)
			r.Post("/entries/edit", entryHandler.UpdateEntry)
			r.Post("/entries/delete", entryHandler.DeleteEntry)
			r.Post("/entries/submit", entryHandler.SubmitEntry)
			r.Get("/export/csv", entryHandler.ExportCSV)

			// Manager and admin routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleManager, models.RoleAdmin))
				r.Get("/team", entryHandler.TeamPage)
				r.Get("/approvals", entryHandler.ApprovalsPage)
				r.Post("/approvals/approve", entryHandler.ApproveEntry)
				r.Post("/approvals/reject", entryHandler.RejectEntry)
				r.Get("/admin/audit", adminHandler.AuditPage)
			})

			// Admin only routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/admin/users", adminHandler.UsersPage)
				r.Post("/admin/users", adminHandler.CreateUser)
				r.Get("/admin/users/edit", adminHandler.EditUserPage)
				r.Post("/admin/users/edit", adminHandler.UpdateUser)
				r.Post("/admin/users/deactivate", adminHandler.DeactivateUser)
				r.Post("/admin/users/reset-password", adminHandler.ResetPassword)
				r.Get("/admin/workcodes", adminHandler.WorkCodesPage)
				r.Post("/admin/workcodes", adminHandler.CreateWorkCode)
				r.Post("/admin/workcodes/edit", adminHandler.UpdateWorkCode)
				r.Get("/admin/rules", adminHandler.RulesPage)
				r.Post("/admin/rules/edit", adminHandler.UpdateRule)
			})
		})
	})

	log.Printf("Server starting on port %s", cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, router))
}
