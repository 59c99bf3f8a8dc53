package model

import "time"

const (
	TestStatusScheduled = "scheduled"
	TestStatusActive    = "active"
	TestStatusCompleted = "completed"
	TestStatusCancelled = "cancelled"
)

// ValidTestStatus reports whether s is a known scheduled-test status.
func ValidTestStatus(s string) bool {
	switch s {
	case TestStatusScheduled, TestStatusActive, TestStatusCompleted, TestStatusCancelled:
		return true
	}
	return false
}

// ScheduledTest exposes a quiz to a cohort during a time window.
type ScheduledTest struct {
	ID              string     `db:"id" json:"id"`
	QuizID          string     `db:"quiz_id" json:"quiz_id"`
	Title           string     `db:"title" json:"title"`
	ScheduledFor    time.Time  `db:"scheduled_for" json:"scheduled_for"`
	VisibleFrom     time.Time  `db:"visible_from" json:"visible_from"`
	VisibleUntil    *time.Time `db:"visible_until" json:"visible_until,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	TargetPlanIDs   []string   `db:"target_plan_ids" json:"target_plan_ids"`
	TargetUserIDs   []string   `db:"target_user_ids" json:"target_user_ids"`
	Status          string     `db:"status" json:"status"`
	Instructions    string     `db:"instructions" json:"instructions"`
	CreatedBy       string     `db:"created_by" json:"created_by"`
	UpdatedBy       string     `db:"updated_by" json:"updated_by"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// EligibleTest is a visible scheduled test joined with the viewer's attempts on its quiz.
type EligibleTest struct {
	Test          ScheduledTest `json:"test"`
	InProgress    *QuizAttempt  `json:"in_progress,omitempty"`
	LastCompleted *QuizAttempt  `json:"last_completed,omitempty"`
}
