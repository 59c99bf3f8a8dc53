package service

import (
	"context"
	"time"

	"learngate/internal/clock"
	"learngate/internal/model"
	"learngate/internal/repository"

	"github.com/rs/zerolog"
)

// QuotaService answers whether a user may consume one more quiz or topic today and
// records consumption after the gated action succeeded. Callers capture the day once
// per request and pass it to every call.
type QuotaService interface {
	CheckQuiz(ctx context.Context, userID string, day time.Time) (*model.QuotaStatus, error)
	CheckTopic(ctx context.Context, userID string, day time.Time) (*model.QuotaStatus, error)
	// RequireQuiz returns a *LimitExceededError when the check denies.
	RequireQuiz(ctx context.Context, userID string, day time.Time) (*model.QuotaStatus, error)
	RequireTopic(ctx context.Context, userID string, day time.Time) (*model.QuotaStatus, error)
	// RecordQuiz never fails the caller; Recorded is false when the increment was lost.
	RecordQuiz(ctx context.Context, userID string, day time.Time) *model.QuotaStatus
	RecordTopic(ctx context.Context, userID string, day time.Time) *model.QuotaStatus
	Summary(ctx context.Context, userID string, day time.Time) (*model.QuotaSummary, error)
}

type quotaService struct {
	plans  PlanService
	usage  repository.UsageRepository
	logger zerolog.Logger
}

// NewQuotaService creates a new QuotaService with a scoped logger.
func NewQuotaService(plans PlanService, usage repository.UsageRepository, logger zerolog.Logger) QuotaService {
	return &quotaService{
		plans:  plans,
		usage:  usage,
		logger: logger.With().Str("service", "QuotaService").Logger(),
	}
}

func buildStatus(kind model.QuotaKind, plan *model.Plan, usage *model.DailyUsage, day time.Time) *model.QuotaStatus {
	limit, used := plan.DailyQuizLimit, usage.QuizCount
	if kind == model.QuotaTopic {
		limit, used = plan.DailyTopicLimit, usage.TopicCount
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &model.QuotaStatus{
		Kind:      kind,
		Allowed:   used < limit,
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
		Day:       day.Format(clock.DateLayout),
		PlanID:    plan.ID,
		PlanName:  plan.Name,
	}
}

func (s *quotaService) check(ctx context.Context, userID string, day time.Time, kind model.QuotaKind) (*model.QuotaStatus, error) {
	plan, err := s.plans.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.usage.GetOrCreate(ctx, userID, day)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read daily usage")
		return nil, err
	}
	return buildStatus(kind, plan, usage, day), nil
}

func (s *quotaService) CheckQuiz(ctx context.Context, userID string, day time.Time) (*model.QuotaStatus, error) {
	return s.check(ctx, userID, day, model.QuotaQuiz)
}

func (s *quotaService) CheckTopic(ctx context.Context, userID string, day time.Time) (*model.QuotaStatus, error) {
	return s.check(ctx, userID, day, model.QuotaTopic)
}

func (s *quotaService) require(ctx context.Context, userID string, day time.Time, kind model.QuotaKind) (*model.QuotaStatus, error) {
	st, err := s.check(ctx, userID, day, kind)
	if err != nil {
		return nil, err
	}
	if !st.Allowed {
		s.logger.Info().
			Str("user_id", userID).
			Str("kind", string(kind)).
			Int("limit", st.Limit).
			Int("used", st.Used).
			Msg("Daily limit reached")
		return st, &LimitExceededError{Status: *st}
	}
	return st, nil
}

func (s *quotaService) RequireQuiz(ctx context.Context, userID string, day time.Time) (*model.QuotaStatus, error) {
	return s.require(ctx, userID, day, model.QuotaQuiz)
}

func (s *quotaService) RequireTopic(ctx context.Context, userID string, day time.Time) (*model.QuotaStatus, error) {
	return s.require(ctx, userID, day, model.QuotaTopic)
}

func (s *quotaService) record(ctx context.Context, userID string, day time.Time, kind model.QuotaKind) *model.QuotaStatus {
	inc := s.usage.IncrementQuiz
	if kind == model.QuotaTopic {
		inc = s.usage.IncrementTopic
	}

	usage, err := inc(ctx, userID, day)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("kind", string(kind)).Msg("Failed to record usage; action already granted")
		st, checkErr := s.check(ctx, userID, day, kind)
		if checkErr != nil {
			return &model.QuotaStatus{Kind: kind, Day: day.Format(clock.DateLayout)}
		}
		st.Recorded = false
		return st
	}

	plan, err := s.plans.GetActivePlan(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve plan after recording usage")
		used := usage.QuizCount
		if kind == model.QuotaTopic {
			used = usage.TopicCount
		}
		return &model.QuotaStatus{Kind: kind, Used: used, Day: day.Format(clock.DateLayout), Recorded: true}
	}
	st := buildStatus(kind, plan, usage, day)
	st.Recorded = true
	return st
}

func (s *quotaService) RecordQuiz(ctx context.Context, userID string, day time.Time) *model.QuotaStatus {
	return s.record(ctx, userID, day, model.QuotaQuiz)
}

func (s *quotaService) RecordTopic(ctx context.Context, userID string, day time.Time) *model.QuotaStatus {
	return s.record(ctx, userID, day, model.QuotaTopic)
}

func (s *quotaService) Summary(ctx context.Context, userID string, day time.Time) (*model.QuotaSummary, error) {
	plan, err := s.plans.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.usage.GetOrCreate(ctx, userID, day)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read daily usage")
		return nil, err
	}
	return &model.QuotaSummary{
		Day:   day.Format(clock.DateLayout),
		Quiz:  *buildStatus(model.QuotaQuiz, plan, usage, day),
		Topic: *buildStatus(model.QuotaTopic, plan, usage, day),
	}, nil
}
