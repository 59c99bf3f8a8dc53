package model

import "time"

// CompletionEvent is emitted after an attempt is finalized.
type CompletionEvent struct {
	AttemptID        string    `json:"attempt_id"`
	UserID           string    `json:"user_id"`
	QuizID           string    `json:"quiz_id"`
	ScorePercentage  float64   `json:"score_percentage"`
	CorrectAnswers   int       `json:"correct_answers"`
	TotalQuestions   int       `json:"total_questions"`
	TimeTakenSeconds *int      `json:"time_taken_seconds,omitempty"`
	Passed           bool      `json:"passed"`
	CompletedAt      time.Time `json:"completed_at"`
}

// RewardEntry is a derived points award tied to a single attempt.
type RewardEntry struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	AttemptID string    `db:"attempt_id" json:"attempt_id"`
	Points    int       `db:"points" json:"points"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
