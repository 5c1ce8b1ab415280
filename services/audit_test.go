package services

import (
	"reflect"
	"testing"

	"parktime/models"
)

func TestChangedFields(t *testing.T) {
	cases := []struct {
		name     string
		oldState map[string]string
		newState map[string]string
		want     []string
	}{
		{
			name:     "no changes",
			oldState: map[string]string{"hours": "8", "note": ""},
			newState: map[string]string{"hours": "8", "note": ""},
			want:     nil,
		},
		{
			name:     "sorted output",
			oldState: map[string]string{"note": "a", "hours": "8", "date": "2024-01-02"},
			newState: map[string]string{"note": "b", "hours": "6", "date": "2024-01-03"},
			want:     []string{"date", "hours", "note"},
		},
		{
			name:     "create against nil old",
			oldState: nil,
			newState: map[string]string{"hours": "8", "note": ""},
			want:     []string{"hours"},
		},
		{
			name:     "delete against nil new",
			oldState: map[string]string{"hours": "8"},
			newState: nil,
			want:     []string{"hours"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := changedFields(tc.oldState, tc.newState)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("changedFields() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSnapshotUserOmitsPasswordHash(t *testing.T) {
	user := &models.User{
		Username:     "alice",
		PasswordHash: "$2a$10$secret",
		Role:         models.RoleEmployee,
		Active:       true,
	}

	for field, value := range SnapshotUser(user) {
		if value == user.PasswordHash {
			t.Fatalf("password hash leaked via field %q", field)
		}
	}
}

func TestEntityHistoryIsChronological(t *testing.T) {
	f := setup(t)

	entry, err := f.entries.Create(f.alice, f.payload(8))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.entries.Update(f.alice, entry.ID, f.payload(6)); err != nil {
		t.Fatalf("update: %v", err)
	}

	records := f.auditFor(t, models.EntityTimeEntry, entry.ID)
	if len(records) < 2 {
		t.Fatalf("expected create + update records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].ID < records[i-1].ID {
			t.Fatal("history not in insertion order")
		}
	}
	if records[0].Action != models.AuditCreate {
		t.Fatalf("expected history to start with create, got %s", records[0].Action)
	}
	last := records[len(records)-1]
	if last.Action != models.AuditUpdate || last.Field != "hours" {
		t.Fatalf("expected trailing hours update, got %+v", last)
	}
}

func TestRecentChangesFilterAndLimit(t *testing.T) {
	f := setup(t)

	entry, _ := f.entries.Create(f.alice, f.payload(8))
	f.entries.Submit(f.alice, entry.ID)
	p := UserPayload{Username: "carol", FullName: "Carol", Role: models.RoleEmployee, Active: true}
	if _, err := f.users.Create(f.admin, p, "secret-password"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	records, err := RecentChanges(f.db, models.EntityUser, 0)
	if err != nil {
		t.Fatalf("recent changes: %v", err)
	}
	for _, record := range records {
		if record.EntityType != models.EntityUser {
			t.Fatalf("filter leaked %s record", record.EntityType)
		}
	}
	if len(records) == 0 {
		t.Fatal("expected user audit records")
	}

	limited, err := RecentChanges(f.db, "", 2)
	if err != nil {
		t.Fatalf("limited recent changes: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 records with limit, got %d", len(limited))
	}
	// Newest first.
	if limited[0].ID < limited[1].ID {
		t.Fatal("recent changes not newest first")
	}
}
