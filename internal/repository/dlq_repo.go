package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"learngate/internal/model"
)

// DLQRepository stores undeliverable completion events. It runs on database/sql so the
// relay worker (lib/pq) and the API (pgx stdlib) can share it.
type DLQRepository interface {
	// Create stores message once per (source, message_id); inserted is false for a repeat.
	Create(ctx context.Context, message *model.DeadLetterMessage) (inserted bool, err error)
	List(ctx context.Context, status string, limit, offset int) ([]model.DeadLetterMessage, error)
	SetStatus(ctx context.Context, id int64, status string) (*model.DeadLetterMessage, error)
}

type dlqRepository struct {
	db *sql.DB
}

func NewDLQRepository(db *sql.DB) DLQRepository {
	return &dlqRepository{db: db}
}

const dlqColumns = `id, source, message_id, payload, attributes, status, created_at, updated_at`

func scanDeadLetter(row interface{ Scan(...any) error }) (*model.DeadLetterMessage, error) {
	var m model.DeadLetterMessage
	if err := row.Scan(&m.ID, &m.Source, &m.MessageID, &m.Payload, &m.Attributes, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) (bool, error) {
	query := `
        INSERT INTO dead_letter_messages (source, message_id, payload, attributes, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (source, message_id) DO NOTHING
    `
	res, err := r.db.ExecContext(
		ctx,
		query,
		message.Source,
		message.MessageID,
		message.Payload,
		message.Attributes,
		message.Status,
	)
	if err != nil {
		return false, fmt.Errorf("insert dead letter message %s from %s: %w", message.MessageID, message.Source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for dead letter message %s: %w", message.MessageID, err)
	}
	return n == 1, nil
}

func (r *dlqRepository) List(ctx context.Context, status string, limit, offset int) ([]model.DeadLetterMessage, error) {
	query := `SELECT ` + dlqColumns + `
        FROM dead_letter_messages
        WHERE ($1 = '' OR status = $1)
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list dead letter messages: %w", err)
	}
	defer rows.Close()

	var out []model.DeadLetterMessage
	for rows.Next() {
		m, err := scanDeadLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dead letter message: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letter messages: %w", err)
	}
	return out, nil
}

func (r *dlqRepository) SetStatus(ctx context.Context, id int64, status string) (*model.DeadLetterMessage, error) {
	query := `UPDATE dead_letter_messages SET status = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + dlqColumns
	m, err := scanDeadLetter(r.db.QueryRowContext(ctx, query, id, status))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dead letter message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update dead letter message %d: %w", id, err)
	}
	return m, nil
}
