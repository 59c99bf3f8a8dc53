package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"learngate/internal/clock"
	"learngate/internal/model"
	"learngate/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Freemium defaults used when the default plan has to be created.
const (
	freemiumQuizLimit  = 1
	freemiumTopicLimit = 1
)

// PlanInput carries the administrator-editable fields of a plan.
type PlanInput struct {
	Name            string
	DailyQuizLimit  int
	DailyTopicLimit int
	MonthlyCost     decimal.Decimal
	Status          string
}

// PlanPatch updates only the fields that are set.
type PlanPatch struct {
	Name            *string
	DailyQuizLimit  *int
	DailyTopicLimit *int
	MonthlyCost     *decimal.Decimal
	Status          *string
}

// PlanService resolves the plan governing a user and manages plans.
type PlanService interface {
	// GetActivePlan returns the user's assigned plan if it is active, otherwise Freemium.
	GetActivePlan(ctx context.Context, userID string) (*model.Plan, error)
	EnsureFreemium(ctx context.Context) (*model.Plan, error)
	Assign(ctx context.Context, userID, planID string, assignedBy *string) (*model.UserPlanAssignment, error)
	Unassign(ctx context.Context, userID string) error
	// RegisterUser assigns Freemium to a newly registered user unless they already have a plan.
	RegisterUser(ctx context.Context, userID string) (*model.UserPlanAssignment, error)
	GetAssignment(ctx context.Context, userID string) (*model.UserPlanAssignment, error)

	CreatePlan(ctx context.Context, in PlanInput) (*model.Plan, error)
	UpdatePlan(ctx context.Context, planID string, patch PlanPatch) (*model.Plan, error)
	GetPlan(ctx context.Context, planID string) (*model.Plan, error)
	ListPlans(ctx context.Context) ([]model.Plan, error)
	// DeletePlan hard-deletes an unreferenced plan and deactivates a referenced one.
	DeletePlan(ctx context.Context, planID string) (bool, error)
}

type planService struct {
	repo         repository.PlanRepository
	clock        clock.Clock
	freemiumName string
	logger       zerolog.Logger
}

// NewPlanService creates a new PlanService with a scoped logger.
func NewPlanService(repo repository.PlanRepository, clk clock.Clock, freemiumName string, logger zerolog.Logger) PlanService {
	if freemiumName == "" {
		freemiumName = "Freemium"
	}
	return &planService{
		repo:         repo,
		clock:        clk,
		freemiumName: freemiumName,
		logger:       logger.With().Str("service", "PlanService").Logger(),
	}
}

func (s *planService) GetActivePlan(ctx context.Context, userID string) (*model.Plan, error) {
	assignment, err := s.repo.GetAssignment(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return s.EnsureFreemium(ctx)
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch plan assignment")
		return nil, err
	}

	plan, err := s.repo.GetByID(ctx, assignment.PlanID)
	if err != nil {
		if repository.IsNotFound(err) {
			s.logger.Warn().Str("user_id", userID).Str("plan_id", assignment.PlanID).Msg("Assigned plan no longer exists; falling back to Freemium")
			return s.EnsureFreemium(ctx)
		}
		s.logger.Error().Err(err).Str("plan_id", assignment.PlanID).Msg("Failed to fetch assigned plan")
		return nil, err
	}
	if !plan.IsActive() {
		return s.EnsureFreemium(ctx)
	}
	return plan, nil
}

func (s *planService) EnsureFreemium(ctx context.Context) (*model.Plan, error) {
	plan, err := s.repo.GetDefault(ctx)
	if err == nil {
		return plan, nil
	}
	if !repository.IsNotFound(err) {
		s.logger.Error().Err(err).Msg("Failed to fetch Freemium plan")
		return nil, err
	}

	plan, err = s.repo.EnsureDefault(ctx, &model.Plan{
		ID:              uuid.NewString(),
		Name:            s.freemiumName,
		DailyQuizLimit:  freemiumQuizLimit,
		DailyTopicLimit: freemiumTopicLimit,
		MonthlyCost:     decimal.Zero,
		Status:          model.PlanStatusActive,
		IsDefault:       true,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("name", s.freemiumName).Msg("Failed to create Freemium plan")
		return nil, translate(err, "plan "+s.freemiumName)
	}
	s.logger.Info().Str("plan_id", plan.ID).Msg("Freemium plan created")
	return plan, nil
}

func (s *planService) Assign(ctx context.Context, userID, planID string, assignedBy *string) (*model.UserPlanAssignment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required: %w", ErrInvalidInput)
	}
	plan, err := s.repo.GetByID(ctx, planID)
	if err != nil {
		return nil, translate(err, "plan "+planID)
	}
	if !plan.IsActive() {
		return nil, fmt.Errorf("plan %s is inactive: %w", planID, ErrInvalidState)
	}

	a, err := s.repo.Assign(ctx, userID, planID, assignedBy, s.clock.Now())
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan_id", planID).Msg("Failed to assign plan")
		return nil, err
	}
	return a, nil
}

func (s *planService) Unassign(ctx context.Context, userID string) error {
	if err := s.repo.Unassign(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to remove plan assignment")
		return err
	}
	return nil
}

func (s *planService) RegisterUser(ctx context.Context, userID string) (*model.UserPlanAssignment, error) {
	existing, err := s.repo.GetAssignment(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	freemium, err := s.EnsureFreemium(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Assign(ctx, userID, freemium.ID, nil, s.clock.Now())
}

func (s *planService) GetAssignment(ctx context.Context, userID string) (*model.UserPlanAssignment, error) {
	a, err := s.repo.GetAssignment(ctx, userID)
	if err != nil {
		return nil, translate(err, "plan assignment for user "+userID)
	}
	return a, nil
}

func validatePlan(p *model.Plan) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("plan name is required: %w", ErrInvalidInput)
	}
	if p.DailyQuizLimit < 0 || p.DailyTopicLimit < 0 {
		return fmt.Errorf("plan limits must not be negative: %w", ErrInvalidInput)
	}
	if p.MonthlyCost.IsNegative() {
		return fmt.Errorf("monthly cost must not be negative: %w", ErrInvalidInput)
	}
	if p.Status != model.PlanStatusActive && p.Status != model.PlanStatusInactive {
		return fmt.Errorf("unknown plan status %q: %w", p.Status, ErrInvalidInput)
	}
	return nil
}

func (s *planService) CreatePlan(ctx context.Context, in PlanInput) (*model.Plan, error) {
	status := in.Status
	if status == "" {
		status = model.PlanStatusActive
	}
	plan := &model.Plan{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(in.Name),
		DailyQuizLimit:  in.DailyQuizLimit,
		DailyTopicLimit: in.DailyTopicLimit,
		MonthlyCost:     in.MonthlyCost.Round(2),
		Status:          status,
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, plan)
	if err != nil {
		s.logger.Error().Err(err).Str("name", plan.Name).Msg("Failed to create plan")
		return nil, translate(err, "plan "+plan.Name)
	}
	return created, nil
}

func (s *planService) UpdatePlan(ctx context.Context, planID string, patch PlanPatch) (*model.Plan, error) {
	plan, err := s.repo.GetByID(ctx, planID)
	if err != nil {
		return nil, translate(err, "plan "+planID)
	}
	if patch.Name != nil {
		plan.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.DailyQuizLimit != nil {
		plan.DailyQuizLimit = *patch.DailyQuizLimit
	}
	if patch.DailyTopicLimit != nil {
		plan.DailyTopicLimit = *patch.DailyTopicLimit
	}
	if patch.MonthlyCost != nil {
		plan.MonthlyCost = patch.MonthlyCost.Round(2)
	}
	if patch.Status != nil {
		plan.Status = *patch.Status
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if plan.IsDefault && !plan.IsActive() {
		return nil, fmt.Errorf("the Freemium plan cannot be deactivated: %w", ErrInvalidState)
	}

	updated, err := s.repo.Update(ctx, plan)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to update plan")
		return nil, translate(err, "plan "+planID)
	}
	return updated, nil
}

func (s *planService) GetPlan(ctx context.Context, planID string) (*model.Plan, error) {
	plan, err := s.repo.GetByID(ctx, planID)
	if err != nil {
		return nil, translate(err, "plan "+planID)
	}
	return plan, nil
}

func (s *planService) ListPlans(ctx context.Context) ([]model.Plan, error) {
	if _, err := s.EnsureFreemium(ctx); err != nil {
		return nil, err
	}
	plans, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list plans")
		return nil, err
	}
	return plans, nil
}

func (s *planService) DeletePlan(ctx context.Context, planID string) (bool, error) {
	plan, err := s.repo.GetByID(ctx, planID)
	if err != nil {
		return false, translate(err, "plan "+planID)
	}
	if plan.IsDefault {
		return false, fmt.Errorf("the Freemium plan cannot be deleted: %w", ErrInvalidState)
	}
	removed, err := s.repo.Delete(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, translate(err, "plan "+planID)
		}
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to delete plan")
		return false, err
	}
	if !removed {
		s.logger.Info().Str("plan_id", planID).Msg("Plan is referenced; deactivated instead of deleted")
	}
	return removed, nil
}
