package services

import (
	"testing"
	"time"

	"parktime/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// One connection so every query sees the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.WorkCode{},
		&models.TimeEntry{},
		&models.AuditRecord{},
		&models.BusinessRule{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role, managerID *uint) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		FullName:     username,
		PasswordHash: "x",
		Role:         role,
		ManagerID:    managerID,
		Active:       true,
	}
	if result := db.Create(user); result.Error != nil {
		t.Fatalf("create user %s: %v", username, result.Error)
	}
	return user
}

func createCode(t *testing.T, db *gorm.DB, code string, active bool) *models.WorkCode {
	t.Helper()
	wc := &models.WorkCode{
		Code:        code,
		Description: code,
		Category:    models.CategoryWork,
		Active:      active,
	}
	if result := db.Create(wc); result.Error != nil {
		t.Fatalf("create work code %s: %v", code, result.Error)
	}
	return wc
}

// fixture is the standard cast: an admin, a manager, an employee on the
// manager's team, an employee on nobody's team, and an active REG code.
type fixture struct {
	db      *gorm.DB
	admin   *models.User
	manager *models.User
	alice   *models.User
	bob     *models.User
	reg     *models.WorkCode
	entries *TimeEntryService
	users   *UserService
	codes   *WorkCodeService
	rules   *RuleService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)

	admin := createUser(t, db, "admin", models.RoleAdmin, nil)
	manager := createUser(t, db, "manager", models.RoleManager, nil)
	alice := createUser(t, db, "alice", models.RoleEmployee, &manager.ID)
	bob := createUser(t, db, "bob", models.RoleEmployee, nil)
	reg := createCode(t, db, "REG", true)

	return &fixture{
		db:      db,
		admin:   admin,
		manager: manager,
		alice:   alice,
		bob:     bob,
		reg:     reg,
		entries: NewTimeEntryService(db),
		users:   NewUserService(db),
		codes:   NewWorkCodeService(db),
		rules:   NewRuleService(db),
	}
}

// seedRule inserts one business rule row directly, bypassing the
// service, for tests that need a non-default configuration.
func (f *fixture) seedRule(t *testing.T, key, value string) *models.BusinessRule {
	t.Helper()
	rule := &models.BusinessRule{RuleKey: key, RuleValue: value, ValueType: "string"}
	if result := f.db.Create(rule); result.Error != nil {
		t.Fatalf("seed rule %s: %v", key, result.Error)
	}
	return rule
}

func (f *fixture) payload(hours float64) EntryPayload {
	return EntryPayload{
		WorkCodeID: f.reg.ID,
		Date:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Hours:      hours,
	}
}

func (f *fixture) auditFor(t *testing.T, entity models.EntityType, id uint) []models.AuditRecord {
	t.Helper()
	records, err := EntityHistory(f.db, entity, id)
	if err != nil {
		t.Fatalf("audit history: %v", err)
	}
	return records
}
