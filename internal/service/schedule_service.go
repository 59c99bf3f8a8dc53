package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"learngate/internal/model"
	"learngate/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ScheduledTestInput carries the administrator-editable fields of a scheduled test.
type ScheduledTestInput struct {
	QuizID          string
	Title           string
	ScheduledFor    time.Time
	VisibleFrom     time.Time
	VisibleUntil    *time.Time
	DurationMinutes *int
	TargetPlanIDs   []string
	TargetUserIDs   []string
	Status          string
	Instructions    string
}

// ScheduleService manages scheduled tests and resolves which ones a user may see.
type ScheduleService interface {
	Create(ctx context.Context, actorID string, in ScheduledTestInput) (*model.ScheduledTest, error)
	Update(ctx context.Context, actorID, testID string, in ScheduledTestInput) (*model.ScheduledTest, error)
	Delete(ctx context.Context, testID string) error
	Get(ctx context.Context, testID string) (*model.ScheduledTest, error)
	List(ctx context.Context, filter repository.ScheduledTestFilter) ([]model.ScheduledTest, error)
	SetStatus(ctx context.Context, actorID, testID, status string) (*model.ScheduledTest, error)
	// ListVisibleFor returns the tests visible to userID at now, most urgent first,
	// each joined with the user's latest attempts on its quiz.
	ListVisibleFor(ctx context.Context, userID string, now time.Time) ([]model.EligibleTest, error)
	IsVisibleTo(ctx context.Context, userID string, test *model.ScheduledTest, now time.Time) (bool, error)
}

type scheduleService struct {
	repo     repository.ScheduledTestRepository
	attempts repository.AttemptRepository
	catalog  ContentCatalog
	plans    PlanService
	logger   zerolog.Logger
}

// NewScheduleService creates a new ScheduleService with a scoped logger.
func NewScheduleService(
	repo repository.ScheduledTestRepository,
	attempts repository.AttemptRepository,
	catalog ContentCatalog,
	plans PlanService,
	logger zerolog.Logger,
) ScheduleService {
	return &scheduleService{
		repo:     repo,
		attempts: attempts,
		catalog:  catalog,
		plans:    plans,
		logger:   logger.With().Str("service", "ScheduleService").Logger(),
	}
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *scheduleService) validate(ctx context.Context, in *ScheduledTestInput) error {
	in.QuizID = strings.TrimSpace(in.QuizID)
	in.Title = strings.TrimSpace(in.Title)
	if in.QuizID == "" {
		return fmt.Errorf("quiz id is required: %w", ErrInvalidInput)
	}
	if in.Title == "" {
		return fmt.Errorf("title is required: %w", ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = model.TestStatusScheduled
	}
	if !model.ValidTestStatus(in.Status) {
		return fmt.Errorf("unknown status %q: %w", in.Status, ErrInvalidInput)
	}
	if in.VisibleFrom.IsZero() {
		return fmt.Errorf("visible_from is required: %w", ErrInvalidInput)
	}
	if in.ScheduledFor.IsZero() {
		in.ScheduledFor = in.VisibleFrom
	}
	if in.VisibleUntil != nil && in.VisibleUntil.Before(in.VisibleFrom) {
		return fmt.Errorf("visible_until is before visible_from: %w", ErrInvalidState)
	}
	if in.DurationMinutes != nil && *in.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be positive: %w", ErrInvalidInput)
	}
	in.TargetPlanIDs = uniqueIDs(in.TargetPlanIDs)
	in.TargetUserIDs = uniqueIDs(in.TargetUserIDs)

	if _, err := s.catalog.GetQuiz(ctx, in.QuizID); err != nil {
		return translate(err, "quiz "+in.QuizID)
	}
	return nil
}

func (s *scheduleService) warnIfUntargeted(t *model.ScheduledTest) {
	if len(t.TargetPlanIDs) == 0 && len(t.TargetUserIDs) == 0 {
		s.logger.Debug().Str("scheduled_test_id", t.ID).Msg("Scheduled test has no target plans or users; it is invisible to everyone")
	}
}

func (s *scheduleService) Create(ctx context.Context, actorID string, in ScheduledTestInput) (*model.ScheduledTest, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	test := &model.ScheduledTest{
		ID:              uuid.NewString(),
		QuizID:          in.QuizID,
		Title:           in.Title,
		ScheduledFor:    in.ScheduledFor,
		VisibleFrom:     in.VisibleFrom,
		VisibleUntil:    in.VisibleUntil,
		DurationMinutes: in.DurationMinutes,
		TargetPlanIDs:   in.TargetPlanIDs,
		TargetUserIDs:   in.TargetUserIDs,
		Status:          in.Status,
		Instructions:    in.Instructions,
		CreatedBy:       actorID,
		UpdatedBy:       actorID,
	}
	created, err := s.repo.Create(ctx, test)
	if err != nil {
		s.logger.Error().Err(err).Str("quiz_id", in.QuizID).Msg("Failed to create scheduled test")
		return nil, err
	}
	s.warnIfUntargeted(created)
	return created, nil
}

func (s *scheduleService) Update(ctx context.Context, actorID, testID string, in ScheduledTestInput) (*model.ScheduledTest, error) {
	current, err := s.repo.GetByID(ctx, testID)
	if err != nil {
		return nil, translate(err, "scheduled test "+testID)
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	if in.QuizID != current.QuizID {
		has, err := s.attempts.HasAttemptsForQuiz(ctx, current.QuizID)
		if err != nil {
			s.logger.Error().Err(err).Str("quiz_id", current.QuizID).Msg("Failed to check attempts before quiz change")
			return nil, err
		}
		if has {
			return nil, fmt.Errorf("quiz of scheduled test %s cannot change once attempts exist: %w", testID, ErrInvalidState)
		}
	}

	current.QuizID = in.QuizID
	current.Title = in.Title
	current.ScheduledFor = in.ScheduledFor
	current.VisibleFrom = in.VisibleFrom
	current.VisibleUntil = in.VisibleUntil
	current.DurationMinutes = in.DurationMinutes
	current.TargetPlanIDs = in.TargetPlanIDs
	current.TargetUserIDs = in.TargetUserIDs
	current.Status = in.Status
	current.Instructions = in.Instructions
	current.UpdatedBy = actorID

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		s.logger.Error().Err(err).Str("scheduled_test_id", testID).Msg("Failed to update scheduled test")
		return nil, translate(err, "scheduled test "+testID)
	}
	s.warnIfUntargeted(updated)
	return updated, nil
}

func (s *scheduleService) Delete(ctx context.Context, testID string) error {
	if err := s.repo.Delete(ctx, testID); err != nil {
		return translate(err, "scheduled test "+testID)
	}
	return nil
}

func (s *scheduleService) Get(ctx context.Context, testID string) (*model.ScheduledTest, error) {
	t, err := s.repo.GetByID(ctx, testID)
	if err != nil {
		return nil, translate(err, "scheduled test "+testID)
	}
	return t, nil
}

func (s *scheduleService) List(ctx context.Context, filter repository.ScheduledTestFilter) ([]model.ScheduledTest, error) {
	if filter.Status != "" && !model.ValidTestStatus(filter.Status) {
		return nil, fmt.Errorf("unknown status %q: %w", filter.Status, ErrInvalidInput)
	}
	tests, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list scheduled tests")
		return nil, err
	}
	return tests, nil
}

func (s *scheduleService) SetStatus(ctx context.Context, actorID, testID, status string) (*model.ScheduledTest, error) {
	if !model.ValidTestStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrInvalidInput)
	}
	t, err := s.repo.SetStatus(ctx, testID, status, actorID)
	if err != nil {
		return nil, translate(err, "scheduled test "+testID)
	}
	s.logger.Info().Str("scheduled_test_id", testID).Str("status", status).Str("actor", actorID).Msg("Scheduled test status changed")
	return t, nil
}

func (s *scheduleService) ListVisibleFor(ctx context.Context, userID string, now time.Time) ([]model.EligibleTest, error) {
	plan, err := s.plans.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	filter := VisibilityFilter{Now: now, UserID: userID, PlanID: plan.ID}

	candidates, err := s.repo.ListVisible(ctx, userID, plan.ID, now)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list visible scheduled tests")
		return nil, err
	}
	visible := make([]model.ScheduledTest, 0, len(candidates))
	for i := range candidates {
		if filter.Matches(&candidates[i]) {
			visible = append(visible, candidates[i])
		}
	}
	sortByUrgency(visible, now)

	quizIDs := make([]string, 0, len(visible))
	for _, t := range visible {
		if !slices.Contains(quizIDs, t.QuizID) {
			quizIDs = append(quizIDs, t.QuizID)
		}
	}
	latest, err := s.attempts.LatestByQuiz(ctx, userID, quizIDs)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load latest attempts")
		return nil, err
	}

	out := make([]model.EligibleTest, 0, len(visible))
	for _, t := range visible {
		l := latest[t.QuizID]
		out = append(out, model.EligibleTest{Test: t, InProgress: l.InProgress, LastCompleted: l.LastCompleted})
	}
	return out, nil
}

func (s *scheduleService) IsVisibleTo(ctx context.Context, userID string, test *model.ScheduledTest, now time.Time) (bool, error) {
	plan, err := s.plans.GetActivePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	return IsVisible(test, Audience{UserID: userID, PlanID: plan.ID}, now), nil
}
