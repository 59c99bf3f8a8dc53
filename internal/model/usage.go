package model

import "time"

// DailyUsage holds one user's consumption counters for one calendar day.
type DailyUsage struct {
	UserID     string    `db:"user_id" json:"user_id"`
	UsageDate  time.Time `db:"usage_date" json:"usage_date"`
	QuizCount  int       `db:"quiz_count" json:"quiz_count"`
	TopicCount int       `db:"topic_count" json:"topic_count"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type QuotaKind string

const (
	QuotaQuiz  QuotaKind = "quiz"
	QuotaTopic QuotaKind = "topic"
)

// QuotaStatus is the answer to "may this user consume one more unit of Kind today".
type QuotaStatus struct {
	Kind      QuotaKind `json:"kind"`
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Day       string    `json:"day"`
	PlanID    string    `json:"plan_id"`
	PlanName  string    `json:"plan_name"`
	// Recorded is false when a usage increment could not be persisted.
	Recorded bool `json:"recorded"`
}

// QuotaSummary bundles both quota kinds for a single day.
type QuotaSummary struct {
	Day   string      `json:"day"`
	Quiz  QuotaStatus `json:"quiz"`
	Topic QuotaStatus `json:"topic"`
}
