package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learngate/internal/clock"
	"learngate/internal/model"
	"learngate/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AttemptOptions tune the attempt engine.
type AttemptOptions struct {
	// AbandonAfter supersedes in-progress attempts older than this on the next start.
	// Zero keeps them resumable indefinitely.
	AbandonAfter           time.Duration
	RewardPointsPerCorrect int
}

// AttemptService starts, scores and finalizes quiz attempts.
type AttemptService interface {
	// Start resumes the user's in-progress attempt on quizID or creates a new one.
	// created is false when an existing attempt was returned; only creation consumes quota.
	Start(ctx context.Context, userID, quizID string) (*model.QuizAttempt, bool, error)
	StartScheduled(ctx context.Context, userID, scheduledTestID string) (*model.QuizAttempt, bool, error)
	Submit(ctx context.Context, userID, attemptID string, answers []model.SubmittedAnswer, timeTakenSeconds *int) (*model.AttemptResult, error)
	Get(ctx context.Context, userID, attemptID string) (*model.QuizAttempt, []model.AttemptAnswer, error)
	ListForUser(ctx context.Context, userID, quizID string) ([]model.QuizAttempt, error)
	TotalRewards(ctx context.Context, userID string) (int, error)
}

type attemptService struct {
	attempts  repository.AttemptRepository
	catalog   ContentCatalog
	quota     QuotaService
	schedules ScheduleService
	rewards   repository.RewardRepository
	notifier  Notifier
	clock     clock.Clock
	opts      AttemptOptions
	logger    zerolog.Logger
}

// NewAttemptService creates a new AttemptService with a scoped logger.
func NewAttemptService(
	attempts repository.AttemptRepository,
	catalog ContentCatalog,
	quota QuotaService,
	schedules ScheduleService,
	rewards repository.RewardRepository,
	notifier Notifier,
	clk clock.Clock,
	opts AttemptOptions,
	logger zerolog.Logger,
) AttemptService {
	return &attemptService{
		attempts:  attempts,
		catalog:   catalog,
		quota:     quota,
		schedules: schedules,
		rewards:   rewards,
		notifier:  notifier,
		clock:     clk,
		opts:      opts,
		logger:    logger.With().Str("service", "AttemptService").Logger(),
	}
}

func (s *attemptService) Start(ctx context.Context, userID, quizID string) (*model.QuizAttempt, bool, error) {
	return s.start(ctx, userID, quizID, nil)
}

func (s *attemptService) StartScheduled(ctx context.Context, userID, scheduledTestID string) (*model.QuizAttempt, bool, error) {
	test, err := s.schedules.Get(ctx, scheduledTestID)
	if err != nil {
		return nil, false, err
	}
	visible, err := s.schedules.IsVisibleTo(ctx, userID, test, s.clock.Now())
	if err != nil {
		return nil, false, err
	}
	if !visible {
		return nil, false, fmt.Errorf("scheduled test %s: %w", scheduledTestID, ErrNotFound)
	}
	return s.start(ctx, userID, test.QuizID, &test.ID)
}

func (s *attemptService) start(ctx context.Context, userID, quizID string, scheduledTestID *string) (*model.QuizAttempt, bool, error) {
	now := s.clock.Now()
	day := s.clock.Today()

	var stale *model.QuizAttempt
	existing, err := s.attempts.FindInProgress(ctx, userID, quizID)
	switch {
	case err == nil:
		if s.opts.AbandonAfter <= 0 || now.Sub(existing.StartedAt) <= s.opts.AbandonAfter {
			return existing, false, nil
		}
		stale = existing
	case !repository.IsNotFound(err):
		s.logger.Error().Err(err).Str("user_id", userID).Str("quiz_id", quizID).Msg("Failed to look up in-progress attempt")
		return nil, false, err
	}

	// A stale attempt is only abandoned once a replacement is allowed.
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, false, translate(err, "quiz "+quizID)
	}
	if _, err := s.quota.RequireQuiz(ctx, userID, day); err != nil {
		return nil, false, err
	}

	if stale != nil {
		if err := s.attempts.MarkAbandoned(ctx, stale.ID); err != nil && !errors.Is(err, repository.ErrNotInProgress) {
			s.logger.Error().Err(err).Str("attempt_id", stale.ID).Msg("Failed to abandon stale attempt")
			return nil, false, err
		}
		s.logger.Info().
			Str("attempt_id", stale.ID).
			Str("user_id", userID).
			Dur("age", now.Sub(stale.StartedAt)).
			Msg("Stale attempt abandoned")
	}

	total := quiz.NumberOfQuestions
	if total <= 0 {
		total = len(quiz.Questions)
	}
	attempt, created, err := s.attempts.Create(ctx, &model.QuizAttempt{
		ID:              uuid.NewString(),
		UserID:          userID,
		QuizID:          quizID,
		ScheduledTestID: scheduledTestID,
		StartedAt:       now,
		TotalQuestions:  total,
		Status:          model.AttemptInProgress,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("quiz_id", quizID).Msg("Failed to create attempt")
		return nil, false, err
	}
	if created {
		s.quota.RecordQuiz(ctx, userID, day)
	}
	return attempt, created, nil
}

func (s *attemptService) Submit(ctx context.Context, userID, attemptID string, answers []model.SubmittedAnswer, timeTakenSeconds *int) (*model.AttemptResult, error) {
	if timeTakenSeconds != nil && *timeTakenSeconds < 0 {
		return nil, fmt.Errorf("time taken must not be negative: %w", ErrInvalidInput)
	}

	current, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, translate(err, "attempt "+attemptID)
	}
	if current.UserID != userID {
		return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
	}
	if current.Status != model.AttemptInProgress {
		return nil, fmt.Errorf("attempt %s is %s: %w", attemptID, current.Status, ErrInvalidState)
	}
	quiz, err := s.catalog.GetQuiz(ctx, current.QuizID)
	if err != nil {
		return nil, translate(err, "quiz "+current.QuizID)
	}

	now := s.clock.Now()
	var scoring model.Scoring
	final, err := s.attempts.Finalize(ctx, attemptID, func(locked *model.QuizAttempt) (*model.QuizAttempt, []model.AttemptAnswer, error) {
		if locked.UserID != userID {
			return nil, nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		if locked.Status != model.AttemptInProgress {
			return nil, nil, fmt.Errorf("attempt %s is %s: %w", attemptID, locked.Status, ErrInvalidState)
		}
		scoring = ScoreAttempt(quiz, locked.TotalQuestions, answers, now)

		done := *locked
		done.Status = model.AttemptCompleted
		done.CompletedAt = &now
		done.CorrectAnswers = scoring.CorrectAnswers
		done.WrongAnswers = scoring.WrongAnswers
		done.Score = scoring.Score
		done.ScorePercentage = scoring.ScorePercentage
		done.Passed = scoring.Passed
		done.TimeTakenSeconds = timeTakenSeconds
		return &done, scoring.Answers, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) {
			return nil, err
		}
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrNotInProgress) {
			return nil, translate(err, "attempt "+attemptID)
		}
		s.logger.Error().Err(err).Str("attempt_id", attemptID).Msg("Failed to finalize attempt")
		return nil, err
	}
	if len(scoring.Skipped) > 0 {
		s.logger.Warn().
			Str("attempt_id", attemptID).
			Strs("question_ids", scoring.Skipped).
			Msg("Skipped answers for unknown or repeated questions")
	}

	// Committed. Everything below is best effort.
	reward := s.award(ctx, final)
	s.notify(ctx, final)

	return &model.AttemptResult{
		Attempt: *final,
		Answers: scoring.Answers,
		Skipped: scoring.Skipped,
		Reward:  reward,
	}, nil
}

func (s *attemptService) award(ctx context.Context, a *model.QuizAttempt) int {
	points := s.opts.RewardPointsPerCorrect * a.CorrectAnswers
	if points <= 0 || s.rewards == nil {
		return 0
	}
	written, err := s.rewards.Award(ctx, &model.RewardEntry{
		ID:        uuid.NewString(),
		UserID:    a.UserID,
		AttemptID: a.ID,
		Points:    points,
		Reason:    fmt.Sprintf("quiz %s: %d correct", a.QuizID, a.CorrectAnswers),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("attempt_id", a.ID).Int("points", points).Msg("Failed to award reward points")
		return 0
	}
	if !written {
		s.logger.Warn().Str("attempt_id", a.ID).Msg("Reward already awarded for attempt")
	}
	return points
}

func (s *attemptService) notify(ctx context.Context, a *model.QuizAttempt) {
	if s.notifier == nil {
		return
	}
	event := model.CompletionEvent{
		AttemptID:        a.ID,
		UserID:           a.UserID,
		QuizID:           a.QuizID,
		ScorePercentage:  a.ScorePercentage,
		CorrectAnswers:   a.CorrectAnswers,
		TotalQuestions:   a.TotalQuestions,
		TimeTakenSeconds: a.TimeTakenSeconds,
		Passed:           a.Passed,
	}
	if a.CompletedAt != nil {
		event.CompletedAt = *a.CompletedAt
	}
	if err := s.notifier.AttemptCompleted(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("attempt_id", a.ID).Msg("Failed to emit completion event")
	}
}

func (s *attemptService) Get(ctx context.Context, userID, attemptID string) (*model.QuizAttempt, []model.AttemptAnswer, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, nil, translate(err, "attempt "+attemptID)
	}
	if a.UserID != userID {
		return nil, nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
	}
	answers, err := s.attempts.GetAnswers(ctx, attemptID)
	if err != nil {
		s.logger.Error().Err(err).Str("attempt_id", attemptID).Msg("Failed to load attempt answers")
		return nil, nil, err
	}
	return a, answers, nil
}

func (s *attemptService) ListForUser(ctx context.Context, userID, quizID string) ([]model.QuizAttempt, error) {
	attempts, err := s.attempts.ListForUser(ctx, userID, quizID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list attempts")
		return nil, err
	}
	return attempts, nil
}

func (s *attemptService) TotalRewards(ctx context.Context, userID string) (int, error) {
	if s.rewards == nil {
		return 0, nil
	}
	total, err := s.rewards.TotalForUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to sum reward points")
		return 0, err
	}
	return total, nil
}
