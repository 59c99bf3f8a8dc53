package dto

import "time"

// ScheduledTestWriteDTO is used for creating and replacing scheduled tests
type ScheduledTestWriteDTO struct {
	QuizID          string     `json:"quiz_id" validate:"required"`
	Title           string     `json:"title" validate:"required,max=200"`
	ScheduledFor    *time.Time `json:"scheduled_for,omitempty"`
	VisibleFrom     time.Time  `json:"visible_from" validate:"required"`
	VisibleUntil    *time.Time `json:"visible_until,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty" validate:"omitempty,gt=0"`
	TargetPlanIDs   []string   `json:"target_plan_ids" validate:"dive,required"`
	TargetUserIDs   []string   `json:"target_user_ids" validate:"dive,required"`
	Status          string     `json:"status,omitempty" validate:"omitempty,oneof=scheduled active completed cancelled"`
	Instructions    string     `json:"instructions,omitempty"`
}

// ScheduledTestStatusDTO changes only the status of a scheduled test.
type ScheduledTestStatusDTO struct {
	Status string `json:"status" validate:"required,oneof=scheduled active completed cancelled"`
}

// ScheduledTestResponseDTO is returned in API responses for scheduled tests
type ScheduledTestResponseDTO struct {
	ID              string     `json:"id"`
	QuizID          string     `json:"quiz_id"`
	Title           string     `json:"title"`
	ScheduledFor    time.Time  `json:"scheduled_for"`
	VisibleFrom     time.Time  `json:"visible_from"`
	VisibleUntil    *time.Time `json:"visible_until,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	TargetPlanIDs   []string   `json:"target_plan_ids"`
	TargetUserIDs   []string   `json:"target_user_ids"`
	Status          string     `json:"status"`
	Instructions    string     `json:"instructions,omitempty"`
	CreatedBy       string     `json:"created_by"`
	UpdatedBy       string     `json:"updated_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EligibleTestResponseDTO is a visible test with the caller's latest attempts on its quiz.
type EligibleTestResponseDTO struct {
	Test          ScheduledTestResponseDTO `json:"test"`
	InProgress    *AttemptResponseDTO      `json:"in_progress_attempt,omitempty"`
	LastCompleted *AttemptResponseDTO      `json:"last_completed_attempt,omitempty"`
}
