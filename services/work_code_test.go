package services

import (
	"errors"
	"testing"

	"parktime/models"
)

func TestWorkCodeCreateIsAdminOnly(t *testing.T) {
	f := setup(t)

	p := WorkCodePayload{Code: "ot", Description: "Overtime", Category: models.CategoryWork, Active: true}

	var authz *AuthorizationError
	if _, err := f.codes.Create(f.manager, p); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for manager create, got %v", err)
	}

	code, err := f.codes.Create(f.admin, p)
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if code.Code != "OT" {
		t.Fatalf("expected code normalized to OT, got %q", code.Code)
	}

	records := f.auditFor(t, models.EntityWorkCode, code.ID)
	if len(records) == 0 {
		t.Fatal("expected create audit records for work code")
	}
}

func TestWorkCodeFrozenOnceReferenced(t *testing.T) {
	f := setup(t)

	if _, err := f.entries.Create(f.alice, f.payload(8)); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	// Identity fields are frozen now.
	p := WorkCodePayload{Code: "REGULAR", Description: "Regular Hours", Category: models.CategoryWork, Active: true}
	var validation *ValidationError
	if _, err := f.codes.Update(f.admin, f.reg.ID, p); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError renaming referenced code, got %v", err)
	}

	p.Code = "REG"
	p.Category = models.CategoryLeavePaid
	if _, err := f.codes.Update(f.admin, f.reg.ID, p); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError recategorizing referenced code, got %v", err)
	}

	// Description and active remain editable.
	p.Category = models.CategoryWork
	p.Description = "Regular shift hours"
	p.Active = false
	code, err := f.codes.Update(f.admin, f.reg.ID, p)
	if err != nil {
		t.Fatalf("update mutable fields: %v", err)
	}
	if code.Description != "Regular shift hours" || code.Active {
		t.Fatalf("mutable fields not applied: %+v", code)
	}
}

func TestManagerEditsWorkCodeButNotIdentity(t *testing.T) {
	f := setup(t)

	p := WorkCodePayload{Code: "REG", Description: "Regular duty", Category: models.CategoryWork, Active: true}
	if _, err := f.codes.Update(f.manager, f.reg.ID, p); err != nil {
		t.Fatalf("manager description edit: %v", err)
	}

	p.Code = "RG"
	var authz *AuthorizationError
	if _, err := f.codes.Update(f.manager, f.reg.ID, p); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for manager rename, got %v", err)
	}

	if _, err := f.codes.Update(f.alice, f.reg.ID, p); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for employee edit, got %v", err)
	}
}

func TestCatalogOrderingIsAdminOnly(t *testing.T) {
	f := setup(t)

	p := WorkCodePayload{Code: "REG", Description: "REG", Category: models.CategoryWork, SortOrder: 5, Active: true}

	var authz *AuthorizationError
	if _, err := f.codes.Update(f.manager, f.reg.ID, p); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for manager sort order change, got %v", err)
	}

	code, err := f.codes.Update(f.admin, f.reg.ID, p)
	if err != nil {
		t.Fatalf("admin sort order change: %v", err)
	}
	if code.SortOrder != 5 {
		t.Fatalf("expected sort order 5, got %d", code.SortOrder)
	}
}
