package service

import (
	"testing"
	"time"

	"learngate/internal/model"
)

func TestIsVisible(t *testing.T) {
	from := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	until := from.Add(2 * time.Hour)
	base := model.ScheduledTest{
		ID:            "t1",
		Status:        model.TestStatusScheduled,
		VisibleFrom:   from,
		VisibleUntil:  &until,
		TargetPlanIDs: []string{"plan-a"},
		TargetUserIDs: []string{"u-direct"},
	}
	planUser := Audience{UserID: "u1", PlanID: "plan-a"}

	cases := []struct {
		name     string
		mutate   func(*model.ScheduledTest)
		audience Audience
		now      time.Time
		want     bool
	}{
		{"at visible_from", nil, planUser, from, true},
		{"at visible_until", nil, planUser, until, true},
		{"before window", nil, planUser, from.Add(-time.Second), false},
		{"after window", nil, planUser, until.Add(time.Second), false},
		{"open ended", func(t *model.ScheduledTest) { t.VisibleUntil = nil }, planUser, from.AddDate(1, 0, 0), true},
		{"other plan", nil, Audience{UserID: "u1", PlanID: "plan-b"}, from, false},
		{"direct user target", nil, Audience{UserID: "u-direct", PlanID: "plan-b"}, from, true},
		{"active status", func(t *model.ScheduledTest) { t.Status = model.TestStatusActive }, planUser, from, true},
		{"completed status", func(t *model.ScheduledTest) { t.Status = model.TestStatusCompleted }, planUser, from, false},
		{"cancelled status", func(t *model.ScheduledTest) { t.Status = model.TestStatusCancelled }, planUser, from, false},
		{"no targets", func(t *model.ScheduledTest) {
			t.TargetPlanIDs = nil
			t.TargetUserIDs = nil
		}, planUser, from, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			test := base
			if tc.mutate != nil {
				tc.mutate(&test)
			}
			if got := IsVisible(&test, tc.audience, tc.now); got != tc.want {
				t.Fatalf("IsVisible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVisibilityFilterMatches(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	test := &model.ScheduledTest{
		Status:        model.TestStatusActive,
		VisibleFrom:   now.Add(-time.Hour),
		TargetPlanIDs: []string{"p"},
	}
	if !(VisibilityFilter{Now: now, UserID: "u", PlanID: "p"}).Matches(test) {
		t.Fatal("expected match for targeted plan")
	}
	if (VisibilityFilter{Now: now, UserID: "u", PlanID: "q"}).Matches(test) {
		t.Fatal("expected no match for other plan")
	}
}

func TestSortByUrgency(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tests := []model.ScheduledTest{
		{ID: "future-late", Status: model.TestStatusScheduled, ScheduledFor: now.Add(2 * time.Hour)},
		{ID: "due", Status: model.TestStatusScheduled, ScheduledFor: now.Add(-time.Hour)},
		{ID: "future-early", Status: model.TestStatusScheduled, ScheduledFor: now.Add(time.Hour)},
		{ID: "active-b", Status: model.TestStatusActive, ScheduledFor: now.Add(3 * time.Hour)},
		{ID: "active-a", Status: model.TestStatusActive, ScheduledFor: now.Add(3 * time.Hour)},
		{ID: "due-now", Status: model.TestStatusScheduled, ScheduledFor: now},
	}
	sortByUrgency(tests, now)

	want := []string{"active-a", "active-b", "due", "due-now", "future-early", "future-late"}
	for i, id := range want {
		if tests[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, tests[i].ID, id)
		}
	}
}
