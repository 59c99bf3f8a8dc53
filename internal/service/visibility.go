package service

import (
	"slices"
	"sort"
	"time"

	"learngate/internal/model"
)

// Audience identifies who is looking: a user and their single active plan.
type Audience struct {
	UserID string
	PlanID string
}

// VisibilityFilter is the eligibility query for one viewer at one instant.
type VisibilityFilter struct {
	Now    time.Time
	UserID string
	PlanID string
}

func (f VisibilityFilter) Audience() Audience {
	return Audience{UserID: f.UserID, PlanID: f.PlanID}
}

// Matches applies IsVisible with the filter's audience and instant.
func (f VisibilityFilter) Matches(test *model.ScheduledTest) bool {
	return IsVisible(test, f.Audience(), f.Now)
}

// IsVisible reports whether test is visible to audience at now. Both window bounds are
// inclusive. A test with no targets is visible to nobody.
func IsVisible(test *model.ScheduledTest, audience Audience, now time.Time) bool {
	if test.Status != model.TestStatusScheduled && test.Status != model.TestStatusActive {
		return false
	}
	if now.Before(test.VisibleFrom) {
		return false
	}
	if test.VisibleUntil != nil && now.After(*test.VisibleUntil) {
		return false
	}
	if audience.UserID != "" && slices.Contains(test.TargetUserIDs, audience.UserID) {
		return true
	}
	return audience.PlanID != "" && slices.Contains(test.TargetPlanIDs, audience.PlanID)
}

// sortByUrgency orders active tests first, then due tests, then upcoming ones, with
// ties broken by scheduled time and id.
func sortByUrgency(tests []model.ScheduledTest, now time.Time) {
	rank := func(t *model.ScheduledTest) int {
		switch {
		case t.Status == model.TestStatusActive:
			return 0
		case !t.ScheduledFor.After(now):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(tests, func(i, j int) bool {
		ri, rj := rank(&tests[i]), rank(&tests[j])
		if ri != rj {
			return ri < rj
		}
		if !tests[i].ScheduledFor.Equal(tests[j].ScheduledFor) {
			return tests[i].ScheduledFor.Before(tests[j].ScheduledFor)
		}
		return tests[i].ID < tests[j].ID
	})
}
