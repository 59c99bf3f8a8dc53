package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"learngate/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScheduledTestFilter narrows administrative listings. Zero values mean no filter.
type ScheduledTestFilter struct {
	Status string
	QuizID string
	Limit  int
	Offset int
}

// ScheduledTestRepository defines methods for accessing scheduled tests.
type ScheduledTestRepository interface {
	Create(ctx context.Context, test *model.ScheduledTest) (*model.ScheduledTest, error)
	Update(ctx context.Context, test *model.ScheduledTest) (*model.ScheduledTest, error)
	Delete(ctx context.Context, testID string) error
	GetByID(ctx context.Context, testID string) (*model.ScheduledTest, error)
	List(ctx context.Context, filter ScheduledTestFilter) ([]model.ScheduledTest, error)
	SetStatus(ctx context.Context, testID, status, updatedBy string) (*model.ScheduledTest, error)
	// ListVisible prefilters tests visible at now to a user on planID.
	ListVisible(ctx context.Context, userID, planID string, now time.Time) ([]model.ScheduledTest, error)
}

type scheduledTestRepo struct {
	pool *pgxpool.Pool
}

// NewScheduledTestRepo creates a new ScheduledTestRepository.
func NewScheduledTestRepo(pool *pgxpool.Pool) ScheduledTestRepository {
	return &scheduledTestRepo{pool: pool}
}

const scheduledTestColumns = `id, quiz_id, title, scheduled_for, visible_from, visible_until, duration_minutes,
        target_plan_ids, target_user_ids, status, instructions, created_by, updated_by, created_at, updated_at`

func scanScheduledTest(row pgx.Row) (*model.ScheduledTest, error) {
	var t model.ScheduledTest
	if err := row.Scan(
		&t.ID,
		&t.QuizID,
		&t.Title,
		&t.ScheduledFor,
		&t.VisibleFrom,
		&t.VisibleUntil,
		&t.DurationMinutes,
		&t.TargetPlanIDs,
		&t.TargetUserIDs,
		&t.Status,
		&t.Instructions,
		&t.CreatedBy,
		&t.UpdatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func collectScheduledTests(rows pgx.Rows) ([]model.ScheduledTest, error) {
	defer rows.Close()
	var tests []model.ScheduledTest
	for rows.Next() {
		t, err := scanScheduledTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled test: %w", err)
		}
		tests = append(tests, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheduled tests: %w", err)
	}
	return tests, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *scheduledTestRepo) Create(ctx context.Context, test *model.ScheduledTest) (*model.ScheduledTest, error) {
	q := `
        INSERT INTO scheduled_tests (id, quiz_id, title, scheduled_for, visible_from, visible_until, duration_minutes,
            target_plan_ids, target_user_ids, status, instructions, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
        RETURNING ` + scheduledTestColumns
	t, err := scanScheduledTest(r.pool.QueryRow(ctx, q,
		test.ID,
		test.QuizID,
		test.Title,
		test.ScheduledFor,
		test.VisibleFrom,
		test.VisibleUntil,
		test.DurationMinutes,
		nonNil(test.TargetPlanIDs),
		nonNil(test.TargetUserIDs),
		test.Status,
		test.Instructions,
		test.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("create scheduled test for quiz %s: %w", test.QuizID, err)
	}
	return t, nil
}

func (r *scheduledTestRepo) Update(ctx context.Context, test *model.ScheduledTest) (*model.ScheduledTest, error) {
	q := `
        UPDATE scheduled_tests
        SET quiz_id = $2,
            title = $3,
            scheduled_for = $4,
            visible_from = $5,
            visible_until = $6,
            duration_minutes = $7,
            target_plan_ids = $8,
            target_user_ids = $9,
            status = $10,
            instructions = $11,
            updated_by = $12,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + scheduledTestColumns
	t, err := scanScheduledTest(r.pool.QueryRow(ctx, q,
		test.ID,
		test.QuizID,
		test.Title,
		test.ScheduledFor,
		test.VisibleFrom,
		test.VisibleUntil,
		test.DurationMinutes,
		nonNil(test.TargetPlanIDs),
		nonNil(test.TargetUserIDs),
		test.Status,
		test.Instructions,
		test.UpdatedBy,
	))
	if err != nil {
		return nil, wrapErr(err, "update scheduled test %s", test.ID)
	}
	return t, nil
}

func (r *scheduledTestRepo) Delete(ctx context.Context, testID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scheduled_tests WHERE id = $1`, testID)
	if err != nil {
		return fmt.Errorf("delete scheduled test %s: %w", testID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete scheduled test %s: %w", testID, ErrNotFound)
	}
	return nil
}

func (r *scheduledTestRepo) GetByID(ctx context.Context, testID string) (*model.ScheduledTest, error) {
	q := `SELECT ` + scheduledTestColumns + ` FROM scheduled_tests WHERE id = $1`
	t, err := scanScheduledTest(r.pool.QueryRow(ctx, q, testID))
	if err != nil {
		return nil, wrapErr(err, "fetch scheduled test %s", testID)
	}
	return t, nil
}

func (r *scheduledTestRepo) List(ctx context.Context, filter ScheduledTestFilter) ([]model.ScheduledTest, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.QuizID != "" {
		args = append(args, filter.QuizID)
		where = append(where, "quiz_id = $"+strconv.Itoa(len(args)))
	}

	q := `SELECT ` + scheduledTestColumns + ` FROM scheduled_tests`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY scheduled_for DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled tests: %w", err)
	}
	return collectScheduledTests(rows)
}

func (r *scheduledTestRepo) SetStatus(ctx context.Context, testID, status, updatedBy string) (*model.ScheduledTest, error) {
	q := `
        UPDATE scheduled_tests
        SET status = $2, updated_by = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + scheduledTestColumns
	t, err := scanScheduledTest(r.pool.QueryRow(ctx, q, testID, status, updatedBy))
	if err != nil {
		return nil, wrapErr(err, "set status of scheduled test %s", testID)
	}
	return t, nil
}

func (r *scheduledTestRepo) ListVisible(ctx context.Context, userID, planID string, now time.Time) ([]model.ScheduledTest, error) {
	q := `
        SELECT ` + scheduledTestColumns + `
        FROM scheduled_tests
        WHERE visible_from <= $3
          AND (visible_until IS NULL OR visible_until >= $3)
          AND status IN ('scheduled', 'active')
          AND ($1 = ANY (target_user_ids) OR $2 = ANY (target_plan_ids))
        ORDER BY (status = 'active') DESC, (scheduled_for <= $3) DESC, scheduled_for, id
    `
	rows, err := r.pool.Query(ctx, q, userID, planID, now)
	if err != nil {
		return nil, fmt.Errorf("list visible scheduled tests for user %s: %w", userID, err)
	}
	return collectScheduledTests(rows)
}
