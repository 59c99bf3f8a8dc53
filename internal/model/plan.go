package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanStatusActive   = "active"
	PlanStatusInactive = "inactive"
)

// Plan is a subscription tier with daily quiz and topic limits.
type Plan struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	DailyQuizLimit  int             `db:"daily_quiz_limit" json:"daily_quiz_limit"`
	DailyTopicLimit int             `db:"daily_topic_limit" json:"daily_topic_limit"`
	MonthlyCost     decimal.Decimal `db:"monthly_cost" json:"monthly_cost"`
	Status          string          `db:"status" json:"status"`
	IsDefault       bool            `db:"is_default" json:"is_default"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

func (p *Plan) IsActive() bool {
	return p.Status == PlanStatusActive
}

// UserPlanAssignment links a user to exactly one plan.
type UserPlanAssignment struct {
	UserID     string    `db:"user_id" json:"user_id"`
	PlanID     string    `db:"plan_id" json:"plan_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
	AssignedBy *string   `db:"assigned_by" json:"assigned_by,omitempty"`
}
