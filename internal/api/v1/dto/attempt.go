package dto

import (
	"time"

	"learngate/internal/model"
)

// AnswerDTO is one submitted answer. Answer is a string, a number or a list of strings.
type AnswerDTO struct {
	QuestionID       string            `json:"question_id" validate:"required"`
	Answer           model.AnswerValue `json:"answer"`
	TimeSpentSeconds int               `json:"time_spent_seconds" validate:"gte=0"`
}

// SubmitAttemptDTO is the body of POST /attempts/{attemptId}/submit
type SubmitAttemptDTO struct {
	Answers          []AnswerDTO `json:"answers" validate:"dive"`
	TimeTakenSeconds *int        `json:"time_taken_seconds,omitempty" validate:"omitempty,gte=0"`
}

// AttemptResponseDTO is returned in API responses for attempts
type AttemptResponseDTO struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	QuizID           string     `json:"quiz_id"`
	ScheduledTestID  *string    `json:"scheduled_test_id,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TotalQuestions   int        `json:"total_questions"`
	CorrectAnswers   int        `json:"correct_answers"`
	WrongAnswers     int        `json:"wrong_answers"`
	Score            int        `json:"score"`
	ScorePercentage  float64    `json:"score_percentage"`
	Passed           bool       `json:"passed"`
	Status           string     `json:"status"`
	TimeTakenSeconds *int       `json:"time_taken_seconds,omitempty"`
}

// StartAttemptResponseDTO wraps a started or resumed attempt.
type StartAttemptResponseDTO struct {
	Attempt AttemptResponseDTO `json:"attempt"`
	Resumed bool               `json:"resumed"`
}

// AttemptAnswerResponseDTO is one stored answer.
type AttemptAnswerResponseDTO struct {
	QuestionID       string            `json:"question_id"`
	SubmittedAnswer  model.AnswerValue `json:"submitted_answer"`
	IsCorrect        bool              `json:"is_correct"`
	TimeSpentSeconds int               `json:"time_spent_seconds"`
	AnsweredAt       time.Time         `json:"answered_at"`
}

// AttemptDetailResponseDTO is an attempt with its answers.
type AttemptDetailResponseDTO struct {
	Attempt AttemptResponseDTO         `json:"attempt"`
	Answers []AttemptAnswerResponseDTO `json:"answers"`
}

// SubmitResultResponseDTO is returned after a successful submit.
type SubmitResultResponseDTO struct {
	Attempt            AttemptResponseDTO         `json:"attempt"`
	Answers            []AttemptAnswerResponseDTO `json:"answers"`
	SkippedQuestionIDs []string                   `json:"skipped_question_ids,omitempty"`
	RewardPoints       int                        `json:"reward_points"`
}

// RewardTotalResponseDTO is the caller's reward balance.
type RewardTotalResponseDTO struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}
