package repository

import (
	"context"
	"fmt"
	"time"

	"learngate/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PlanRepository defines methods for accessing plans and user plan assignments.
type PlanRepository interface {
	GetByID(ctx context.Context, planID string) (*model.Plan, error)
	GetDefault(ctx context.Context) (*model.Plan, error)
	// EnsureDefault inserts the default plan if none exists and returns the stored one.
	EnsureDefault(ctx context.Context, plan *model.Plan) (*model.Plan, error)
	List(ctx context.Context) ([]model.Plan, error)
	Create(ctx context.Context, plan *model.Plan) (*model.Plan, error)
	Update(ctx context.Context, plan *model.Plan) (*model.Plan, error)
	// Delete removes an unreferenced plan or deactivates a referenced one. It reports
	// whether the row was removed.
	Delete(ctx context.Context, planID string) (bool, error)

	GetAssignment(ctx context.Context, userID string) (*model.UserPlanAssignment, error)
	// Assign replaces any existing assignment for the user in a single upsert.
	Assign(ctx context.Context, userID, planID string, assignedBy *string, assignedAt time.Time) (*model.UserPlanAssignment, error)
	Unassign(ctx context.Context, userID string) error
}

type planRepo struct {
	pool *pgxpool.Pool
}

// NewPlanRepo creates a new PlanRepository.
func NewPlanRepo(pool *pgxpool.Pool) PlanRepository {
	return &planRepo{pool: pool}
}

const planColumns = `id, name, daily_quiz_limit, daily_topic_limit, monthly_cost::text, status, is_default, created_at, updated_at`

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	var cost string
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.DailyQuizLimit,
		&p.DailyTopicLimit,
		&cost,
		&p.Status,
		&p.IsDefault,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("parse monthly_cost %q: %w", cost, err)
	}
	p.MonthlyCost = d
	return &p, nil
}

func (r *planRepo) GetByID(ctx context.Context, planID string) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	p, err := scanPlan(r.pool.QueryRow(ctx, q, planID))
	if err != nil {
		return nil, wrapErr(err, "fetch plan %s", planID)
	}
	return p, nil
}

func (r *planRepo) GetDefault(ctx context.Context) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE is_default`
	p, err := scanPlan(r.pool.QueryRow(ctx, q))
	if err != nil {
		return nil, wrapErr(err, "fetch default plan")
	}
	return p, nil
}

func (r *planRepo) EnsureDefault(ctx context.Context, plan *model.Plan) (*model.Plan, error) {
	// Only a concurrent default insert is absorbed. A non-default plan already holding
	// the name surfaces as ErrConflict.
	const q = `
        INSERT INTO plans (id, name, daily_quiz_limit, daily_topic_limit, monthly_cost, status, is_default)
        VALUES ($1, $2, $3, $4, $5::numeric, 'active', TRUE)
        ON CONFLICT (is_default) WHERE is_default DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, plan.ID, plan.Name, plan.DailyQuizLimit, plan.DailyTopicLimit, plan.MonthlyCost.String()); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("ensure default plan: name %q is taken by a non-default plan: %w", plan.Name, ErrConflict)
		}
		return nil, fmt.Errorf("ensure default plan %s: %w", plan.Name, err)
	}
	return r.GetDefault(ctx)
}

func (r *planRepo) List(ctx context.Context) ([]model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans ORDER BY is_default DESC, name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

func (r *planRepo) Create(ctx context.Context, plan *model.Plan) (*model.Plan, error) {
	q := `
        INSERT INTO plans (id, name, daily_quiz_limit, daily_topic_limit, monthly_cost, status, is_default)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, FALSE)
        RETURNING ` + planColumns
	p, err := scanPlan(r.pool.QueryRow(ctx, q,
		plan.ID, plan.Name, plan.DailyQuizLimit, plan.DailyTopicLimit, plan.MonthlyCost.String(), plan.Status))
	if err != nil {
		return nil, wrapErr(err, "create plan %s", plan.Name)
	}
	return p, nil
}

func (r *planRepo) Update(ctx context.Context, plan *model.Plan) (*model.Plan, error) {
	q := `
        UPDATE plans
        SET name = $2,
            daily_quiz_limit = $3,
            daily_topic_limit = $4,
            monthly_cost = $5::numeric,
            status = $6,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + planColumns
	p, err := scanPlan(r.pool.QueryRow(ctx, q,
		plan.ID, plan.Name, plan.DailyQuizLimit, plan.DailyTopicLimit, plan.MonthlyCost.String(), plan.Status))
	if err != nil {
		return nil, wrapErr(err, "update plan %s", plan.ID)
	}
	return p, nil
}

func (r *planRepo) Delete(ctx context.Context, planID string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return false, fmt.Errorf("starting transaction for plan delete: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM plans WHERE id = $1)`, planID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking plan %s: %w", planID, err)
	}
	if !exists {
		return false, fmt.Errorf("delete plan %s: %w", planID, ErrNotFound)
	}

	const refQ = `
        SELECT EXISTS (SELECT 1 FROM user_plan_assignments WHERE plan_id = $1)
            OR EXISTS (SELECT 1 FROM scheduled_tests WHERE $1 = ANY (target_plan_ids))
    `
	var referenced bool
	if err := tx.QueryRow(ctx, refQ, planID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("checking references to plan %s: %w", planID, err)
	}

	if referenced {
		if _, err := tx.Exec(ctx, `UPDATE plans SET status = 'inactive', updated_at = NOW() WHERE id = $1`, planID); err != nil {
			return false, fmt.Errorf("deactivating plan %s: %w", planID, err)
		}
	} else {
		if _, err := tx.Exec(ctx, `DELETE FROM plans WHERE id = $1`, planID); err != nil {
			return false, fmt.Errorf("deleting plan %s: %w", planID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing plan delete %s: %w", planID, err)
	}
	return !referenced, nil
}

func (r *planRepo) GetAssignment(ctx context.Context, userID string) (*model.UserPlanAssignment, error) {
	const q = `SELECT user_id, plan_id, assigned_at, assigned_by FROM user_plan_assignments WHERE user_id = $1`
	var a model.UserPlanAssignment
	err := r.pool.QueryRow(ctx, q, userID).Scan(&a.UserID, &a.PlanID, &a.AssignedAt, &a.AssignedBy)
	if err != nil {
		return nil, wrapErr(err, "fetch plan assignment for user %s", userID)
	}
	return &a, nil
}

func (r *planRepo) Assign(ctx context.Context, userID, planID string, assignedBy *string, assignedAt time.Time) (*model.UserPlanAssignment, error) {
	const q = `
        INSERT INTO user_plan_assignments (user_id, plan_id, assigned_at, assigned_by)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE
        SET plan_id = EXCLUDED.plan_id,
            assigned_at = EXCLUDED.assigned_at,
            assigned_by = EXCLUDED.assigned_by
        RETURNING user_id, plan_id, assigned_at, assigned_by
    `
	var a model.UserPlanAssignment
	err := r.pool.QueryRow(ctx, q, userID, planID, assignedAt, assignedBy).Scan(&a.UserID, &a.PlanID, &a.AssignedAt, &a.AssignedBy)
	if err != nil {
		return nil, fmt.Errorf("assign plan %s to user %s: %w", planID, userID, err)
	}
	return &a, nil
}

func (r *planRepo) Unassign(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM user_plan_assignments WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("unassign plan for user %s: %w", userID, err)
	}
	return nil
}
