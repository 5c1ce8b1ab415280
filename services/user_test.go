package services

import (
	"errors"
	"strings"
	"testing"

	"parktime/models"
)

func TestCreateUserRequiresAdmin(t *testing.T) {
	f := setup(t)

	p := UserPayload{Username: "carol", FullName: "Carol", Role: models.RoleEmployee, Active: true}

	var authz *AuthorizationError
	if _, err := f.users.Create(f.manager, p, "secret-password"); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for manager, got %v", err)
	}
	if _, err := f.users.Create(f.alice, p, "secret-password"); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for employee, got %v", err)
	}

	user, err := f.users.Create(f.admin, p, "secret-password")
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if !user.MustChangePassword {
		t.Fatal("new accounts must change their starting password")
	}
}

func TestCreateUserNeverAuditsPassword(t *testing.T) {
	f := setup(t)

	p := UserPayload{Username: "carol", FullName: "Carol", Role: models.RoleEmployee, Active: true}
	user, err := f.users.Create(f.admin, p, "secret-password")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, record := range f.auditFor(t, models.EntityUser, user.ID) {
		if strings.Contains(record.Field, "password") {
			t.Fatalf("password field %q in audit trail", record.Field)
		}
		if strings.Contains(record.OldValue, "secret") || strings.Contains(record.NewValue, "secret") {
			t.Fatalf("password material leaked into audit record %+v", record)
		}
	}
}

func TestUpdateUserAuditsDiff(t *testing.T) {
	f := setup(t)

	p := UserPayload{
		Username:  f.alice.Username,
		FullName:  "Alice Parker",
		Role:      f.alice.Role,
		ManagerID: f.alice.ManagerID,
		Active:    true,
	}
	if _, err := f.users.Update(f.admin, f.alice.ID, p); err != nil {
		t.Fatalf("update: %v", err)
	}

	records := f.auditFor(t, models.EntityUser, f.alice.ID)
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record for the name change, got %d", len(records))
	}
	record := records[0]
	if record.Field != "full_name" || record.OldValue != "alice" || record.NewValue != "Alice Parker" {
		t.Fatalf("unexpected audit record: %+v", record)
	}
}

func TestSelfDemotionAndDeactivationBlocked(t *testing.T) {
	f := setup(t)

	p := UserPayload{Username: "admin", FullName: "admin", Role: models.RoleEmployee, Active: true}
	var validation *ValidationError
	if _, err := f.users.Update(f.admin, f.admin.ID, p); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for self-demotion, got %v", err)
	}

	p.Role = models.RoleAdmin
	p.Active = false
	if _, err := f.users.Update(f.admin, f.admin.ID, p); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for self-deactivation, got %v", err)
	}

	if _, err := f.users.Deactivate(f.admin, f.admin.ID); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError deactivating self, got %v", err)
	}
}

func TestDeactivatePreservesUserAndAudits(t *testing.T) {
	f := setup(t)

	user, err := f.users.Deactivate(f.admin, f.alice.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if user.Active {
		t.Fatal("expected inactive user")
	}

	// Still present, just flagged.
	var found models.User
	if result := f.db.First(&found, f.alice.ID); result.Error != nil {
		t.Fatalf("deactivated user disappeared: %v", result.Error)
	}

	records := f.auditFor(t, models.EntityUser, f.alice.ID)
	if len(records) != 1 || records[0].Field != "active" || records[0].NewValue != "false" {
		t.Fatalf("expected one active=false audit record, got %+v", records)
	}

	// Deactivated users cannot log in or receive new entries.
	if _, err := f.users.Authenticate("alice", "whatever"); err == nil {
		t.Fatal("expected authentication failure for inactive user")
	}
	p := f.payload(8)
	p.UserID = f.alice.ID
	var validation *ValidationError
	if _, err := f.entries.Create(f.admin, p); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError creating entry for inactive user, got %v", err)
	}
}

func TestResetPasswordAuditRedacted(t *testing.T) {
	f := setup(t)

	if err := f.users.ResetPassword(f.admin, f.alice.ID, "brand-new-password"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	records := f.auditFor(t, models.EntityUser, f.alice.ID)
	if len(records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(records))
	}
	record := records[0]
	if record.Field != "password" || record.OldValue != redacted || record.NewValue != redacted {
		t.Fatalf("password audit not redacted: %+v", record)
	}

	var authz *AuthorizationError
	if err := f.users.ResetPassword(f.manager, f.alice.ID, "brand-new-password"); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for manager reset, got %v", err)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	f := setup(t)

	p := UserPayload{Username: "Alice", FullName: "Other Alice", Role: models.RoleEmployee, Active: true}
	var validation *ValidationError
	if _, err := f.users.Create(f.admin, p, "secret-password"); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for duplicate username, got %v", err)
	}
}

func TestManagerReferenceValidated(t *testing.T) {
	f := setup(t)

	p := UserPayload{Username: "carol", FullName: "Carol", Role: models.RoleEmployee, Active: true}
	bobID := f.bob.ID
	p.ManagerID = &bobID

	var validation *ValidationError
	if _, err := f.users.Create(f.admin, p, "secret-password"); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for employee as manager, got %v", err)
	}

	p.ManagerID = &f.manager.ID
	if _, err := f.users.Create(f.admin, p, "secret-password"); err != nil {
		t.Fatalf("create with valid manager: %v", err)
	}
}
