package services

import (
	"errors"
	"testing"
	"time"

	"parktime/models"
)

func TestWeekBounds(t *testing.T) {
	// 2024-01-03 is a Wednesday.
	wednesday := time.Date(2024, 1, 3, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		start time.Weekday
		from  string
		to    string
	}{
		{"monday start", time.Monday, "2024-01-01", "2024-01-07"},
		{"sunday start", time.Sunday, "2023-12-31", "2024-01-06"},
		{"saturday start", time.Saturday, "2023-12-30", "2024-01-05"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, to := weekBounds(wednesday, tc.start)
			if from.Format("2006-01-02") != tc.from || to.Format("2006-01-02") != tc.to {
				t.Fatalf("got week %s..%s, want %s..%s",
					from.Format("2006-01-02"), to.Format("2006-01-02"), tc.from, tc.to)
			}
		})
	}

	// A day already on the boundary starts its own week.
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	from, _ := weekBounds(monday, time.Monday)
	if !from.Equal(monday) {
		t.Fatalf("expected week to start on the anchor Monday, got %v", from)
	}
}

func TestUserWeekTotals(t *testing.T) {
	f := setup(t)

	day := func(d int) EntryPayload {
		p := f.payload(0)
		p.Date = time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
		return p
	}

	// Tuesday 8h and 2h, Wednesday 4h, all inside the week of Jan 1.
	for _, e := range []struct {
		d     int
		hours float64
	}{{2, 8}, {2, 2}, {3, 4}} {
		p := day(e.d)
		p.Hours = e.hours
		if _, err := f.entries.Create(f.alice, p); err != nil {
			t.Fatalf("create %v on day %d: %v", e.hours, e.d, err)
		}
	}

	// A rejected Thursday entry is listed but not counted.
	p := day(4)
	p.Hours = 5
	rejected, err := f.entries.Create(f.alice, p)
	if err != nil {
		t.Fatalf("create rejected entry: %v", err)
	}
	if _, err := f.entries.Submit(f.alice, rejected.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.entries.Reject(f.manager, rejected.ID, "wrong code"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// Next week's entry stays out of this week entirely.
	p = day(9)
	p.Hours = 3
	if _, err := f.entries.Create(f.alice, p); err != nil {
		t.Fatalf("create next-week entry: %v", err)
	}

	week, err := f.entries.UserWeek(f.alice, f.alice.ID, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("user week: %v", err)
	}

	if week.From.Format("2006-01-02") != "2024-01-01" || week.To.Format("2006-01-02") != "2024-01-07" {
		t.Fatalf("unexpected week bounds %v..%v", week.From, week.To)
	}
	if week.Total != 14 {
		t.Fatalf("expected weekly total 14, got %v", week.Total)
	}
	if week.DayHours["2024-01-02"] != 10 || week.DayHours["2024-01-03"] != 4 {
		t.Fatalf("unexpected day totals: %v", week.DayHours)
	}
	if _, counted := week.DayHours["2024-01-04"]; counted {
		t.Fatalf("rejected entry must not contribute day hours: %v", week.DayHours)
	}
	if len(week.Entries) != 4 {
		t.Fatalf("expected 4 listed entries including the rejected one, got %d", len(week.Entries))
	}
}

func TestUserWeekRespectsConfiguredWeekStart(t *testing.T) {
	f := setup(t)
	f.seedRule(t, models.RuleWeekStartDay, "sunday")

	week, err := f.entries.UserWeek(f.alice, f.alice.ID, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("user week: %v", err)
	}
	if week.From.Format("2006-01-02") != "2023-12-31" || week.To.Format("2006-01-02") != "2024-01-06" {
		t.Fatalf("expected Sunday-start week 2023-12-31..2024-01-06, got %v..%v", week.From, week.To)
	}
}

func TestUserWeekVisibility(t *testing.T) {
	f := setup(t)

	// Alice reports to the manager, Bob does not.
	if _, err := f.entries.UserWeek(f.manager, f.alice.ID, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("manager viewing report's week: %v", err)
	}

	var authz *AuthorizationError
	if _, err := f.entries.UserWeek(f.manager, f.bob.ID, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for non-report, got %v", err)
	}
	if _, err := f.entries.UserWeek(f.alice, f.bob.ID, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for employee viewing another user, got %v", err)
	}
}

func TestTeamWeekScope(t *testing.T) {
	f := setup(t)

	if _, err := f.entries.Create(f.alice, f.payload(8)); err != nil {
		t.Fatalf("create alice entry: %v", err)
	}
	if _, err := f.entries.Create(f.bob, f.payload(6)); err != nil {
		t.Fatalf("create bob entry: %v", err)
	}

	anchor := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	// Managers see only their active reports.
	team, err := f.entries.TeamWeek(f.manager, anchor)
	if err != nil {
		t.Fatalf("manager team week: %v", err)
	}
	if len(team.Members) != 1 || team.Members[0].User.ID != f.alice.ID {
		t.Fatalf("expected manager's team to be just alice, got %+v", team.Members)
	}
	if team.Members[0].Total != 8 || team.Members[0].DayHours["2024-01-02"] != 8 {
		t.Fatalf("unexpected member totals: %+v", team.Members[0])
	}

	// Admins see every active user.
	team, err = f.entries.TeamWeek(f.admin, anchor)
	if err != nil {
		t.Fatalf("admin team week: %v", err)
	}
	if len(team.Members) != 4 {
		t.Fatalf("expected 4 active users in admin view, got %d", len(team.Members))
	}

	var authz *AuthorizationError
	if _, err := f.entries.TeamWeek(f.alice, anchor); !errors.As(err, &authz) {
		t.Fatalf("expected AuthorizationError for employee team view, got %v", err)
	}
}
