package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanCreateDTO is used for incoming plan creation requests
type PlanCreateDTO struct {
	Name            string          `json:"name" validate:"required,max=100"`
	DailyQuizLimit  int             `json:"daily_quiz_limit" validate:"gte=0"`
	DailyTopicLimit int             `json:"daily_topic_limit" validate:"gte=0"`
	MonthlyCost     decimal.Decimal `json:"monthly_cost"`
	Status          string          `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// PlanUpdateDTO is used for partial plan updates
type PlanUpdateDTO struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	DailyQuizLimit  *int             `json:"daily_quiz_limit,omitempty" validate:"omitempty,gte=0"`
	DailyTopicLimit *int             `json:"daily_topic_limit,omitempty" validate:"omitempty,gte=0"`
	MonthlyCost     *decimal.Decimal `json:"monthly_cost,omitempty"`
	Status          *string          `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// PlanResponseDTO is returned in API responses for plans
type PlanResponseDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DailyQuizLimit  int       `json:"daily_quiz_limit"`
	DailyTopicLimit int       `json:"daily_topic_limit"`
	MonthlyCost     string    `json:"monthly_cost"`
	Status          string    `json:"status"`
	IsDefault       bool      `json:"is_default"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PlanDeleteResponseDTO tells whether the plan was removed or only deactivated.
type PlanDeleteResponseDTO struct {
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
}

// AssignPlanDTO assigns a plan to a user.
type AssignPlanDTO struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// PlanAssignmentResponseDTO is a user's current plan.
type PlanAssignmentResponseDTO struct {
	UserID     string           `json:"user_id"`
	PlanID     string           `json:"plan_id"`
	AssignedAt time.Time        `json:"assigned_at"`
	AssignedBy *string          `json:"assigned_by,omitempty"`
	Plan       *PlanResponseDTO `json:"plan,omitempty"`
}
