package model

import "time"

const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
	AttemptAbandoned  = "abandoned"
)

// QuizAttempt is one pass of a user through a quiz.
type QuizAttempt struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	QuizID           string     `db:"quiz_id" json:"quiz_id"`
	ScheduledTestID  *string    `db:"scheduled_test_id" json:"scheduled_test_id,omitempty"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	TotalQuestions   int        `db:"total_questions" json:"total_questions"`
	CorrectAnswers   int        `db:"correct_answers" json:"correct_answers"`
	WrongAnswers     int        `db:"wrong_answers" json:"wrong_answers"`
	Score            int        `db:"score" json:"score"`
	ScorePercentage  float64    `db:"score_percentage" json:"score_percentage"`
	Passed           bool       `db:"passed" json:"passed"`
	Status           string     `db:"status" json:"status"`
	TimeTakenSeconds *int       `db:"time_taken_seconds" json:"time_taken_seconds,omitempty"`
}

// AttemptAnswer is the persisted outcome of one answered question.
type AttemptAnswer struct {
	AttemptID        string      `db:"attempt_id" json:"attempt_id"`
	QuestionID       string      `db:"question_id" json:"question_id"`
	SubmittedAnswer  AnswerValue `db:"submitted_answer" json:"submitted_answer"`
	IsCorrect        bool        `db:"is_correct" json:"is_correct"`
	TimeSpentSeconds int         `db:"time_spent_seconds" json:"time_spent_seconds"`
	AnsweredAt       time.Time   `db:"answered_at" json:"answered_at"`
}

// SubmittedAnswer is one item of a submission as received from the client.
type SubmittedAnswer struct {
	QuestionID       string      `json:"question_id"`
	Answer           AnswerValue `json:"answer"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
}

// Scoring is the computed outcome of a submission before it is persisted.
type Scoring struct {
	Answers         []AttemptAnswer
	CorrectAnswers  int
	WrongAnswers    int
	Score           int
	ScorePercentage float64
	Passed          bool
	Skipped         []string
}

// AttemptResult is returned to the caller after a successful submission.
type AttemptResult struct {
	Attempt QuizAttempt     `json:"attempt"`
	Answers []AttemptAnswer `json:"answers"`
	Skipped []string        `json:"skipped_question_ids,omitempty"`
	Reward  int             `json:"reward_points"`
}
