package repository

import (
	"context"
	"fmt"

	"learngate/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RewardRepository writes derived reward points.
type RewardRepository interface {
	// Award inserts the entry unless the attempt was already rewarded.
	// It reports whether a row was written.
	Award(ctx context.Context, entry *model.RewardEntry) (bool, error)
	TotalForUser(ctx context.Context, userID string) (int, error)
}

type rewardRepo struct {
	pool *pgxpool.Pool
}

// NewRewardRepo creates a new RewardRepository.
func NewRewardRepo(pool *pgxpool.Pool) RewardRepository {
	return &rewardRepo{pool: pool}
}

func (r *rewardRepo) Award(ctx context.Context, entry *model.RewardEntry) (bool, error) {
	const q = `
        INSERT INTO reward_points (id, user_id, attempt_id, points, reason)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (attempt_id) DO NOTHING
    `
	tag, err := r.pool.Exec(ctx, q, entry.ID, entry.UserID, entry.AttemptID, entry.Points, entry.Reason)
	if err != nil {
		return false, fmt.Errorf("award %d points to user %s for attempt %s: %w", entry.Points, entry.UserID, entry.AttemptID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *rewardRepo) TotalForUser(ctx context.Context, userID string) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(points), 0)::int FROM reward_points WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum reward points for user %s: %w", userID, err)
	}
	return total, nil
}
