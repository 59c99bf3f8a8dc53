package repository

import (
	"context"
	"fmt"
	"time"

	"learngate/internal/clock"
	"learngate/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository tracks per-user, per-day consumption counters.
type UsageRepository interface {
	// GetOrCreate returns the row for (userID, day), materializing it with zero counts if absent.
	GetOrCreate(ctx context.Context, userID string, day time.Time) (*model.DailyUsage, error)
	// IncrementQuiz atomically adds one quiz start, creating the row if needed.
	IncrementQuiz(ctx context.Context, userID string, day time.Time) (*model.DailyUsage, error)
	// IncrementTopic atomically adds one topic access, creating the row if needed.
	IncrementTopic(ctx context.Context, userID string, day time.Time) (*model.DailyUsage, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) GetOrCreate(ctx context.Context, userID string, day time.Time) (*model.DailyUsage, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	const q = `
        INSERT INTO daily_usage (user_id, usage_date)
        VALUES ($1, $2::date)
        ON CONFLICT (user_id, usage_date) DO UPDATE
        SET user_id = EXCLUDED.user_id
        RETURNING user_id, usage_date, quiz_count, topic_count, updated_at
    `
	return r.upsert(ctx, q, userID, day, "get or create usage")
}

func (r *usageRepo) IncrementQuiz(ctx context.Context, userID string, day time.Time) (*model.DailyUsage, error) {
	const q = `
        INSERT INTO daily_usage (user_id, usage_date, quiz_count)
        VALUES ($1, $2::date, 1)
        ON CONFLICT (user_id, usage_date) DO UPDATE
        SET quiz_count = daily_usage.quiz_count + 1,
            updated_at = NOW()
        RETURNING user_id, usage_date, quiz_count, topic_count, updated_at
    `
	return r.upsert(ctx, q, userID, day, "increment quiz usage")
}

func (r *usageRepo) IncrementTopic(ctx context.Context, userID string, day time.Time) (*model.DailyUsage, error) {
	const q = `
        INSERT INTO daily_usage (user_id, usage_date, topic_count)
        VALUES ($1, $2::date, 1)
        ON CONFLICT (user_id, usage_date) DO UPDATE
        SET topic_count = daily_usage.topic_count + 1,
            updated_at = NOW()
        RETURNING user_id, usage_date, quiz_count, topic_count, updated_at
    `
	return r.upsert(ctx, q, userID, day, "increment topic usage")
}

func (r *usageRepo) upsert(ctx context.Context, q, userID string, day time.Time, op string) (*model.DailyUsage, error) {
	date := day.Format(clock.DateLayout)
	var u model.DailyUsage
	err := r.pool.QueryRow(ctx, q, userID, date).Scan(
		&u.UserID,
		&u.UsageDate,
		&u.QuizCount,
		&u.TopicCount,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s for user %s on %s: %w", op, userID, date, err)
	}
	return &u, nil
}
