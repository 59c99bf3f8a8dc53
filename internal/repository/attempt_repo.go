package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"learngate/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FinalizeFunc is called with the attempt row locked for update. It returns the
// completed attempt values and the answer rows to persist, or an error to abort.
type FinalizeFunc func(locked *model.QuizAttempt) (*model.QuizAttempt, []model.AttemptAnswer, error)

// LatestAttempts holds the most recent in-progress and completed attempt on one quiz.
type LatestAttempts struct {
	InProgress    *model.QuizAttempt
	LastCompleted *model.QuizAttempt
}

// AttemptRepository defines methods for accessing quiz attempts and their answers.
type AttemptRepository interface {
	// Create inserts a new in-progress attempt. If one already exists for the same
	// user and quiz, that attempt is returned and created is false.
	Create(ctx context.Context, attempt *model.QuizAttempt) (*model.QuizAttempt, bool, error)
	FindInProgress(ctx context.Context, userID, quizID string) (*model.QuizAttempt, error)
	MarkAbandoned(ctx context.Context, attemptID string) error
	GetByID(ctx context.Context, attemptID string) (*model.QuizAttempt, error)
	GetAnswers(ctx context.Context, attemptID string) ([]model.AttemptAnswer, error)
	ListForUser(ctx context.Context, userID, quizID string) ([]model.QuizAttempt, error)
	LatestByQuiz(ctx context.Context, userID string, quizIDs []string) (map[string]LatestAttempts, error)
	HasAttemptsForQuiz(ctx context.Context, quizID string) (bool, error)
	// Finalize locks the attempt, lets fn score it, then writes answers and the
	// completed attempt in one transaction.
	Finalize(ctx context.Context, attemptID string, fn FinalizeFunc) (*model.QuizAttempt, error)
}

type attemptRepo struct {
	pool *pgxpool.Pool
}

// NewAttemptRepo creates a new AttemptRepository.
func NewAttemptRepo(pool *pgxpool.Pool) AttemptRepository {
	return &attemptRepo{pool: pool}
}

const attemptColumns = `id, user_id, quiz_id, scheduled_test_id, started_at, completed_at, total_questions,
        correct_answers, wrong_answers, score, score_percentage::float8, passed, status, time_taken_seconds`

func scanAttempt(row pgx.Row) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.QuizID,
		&a.ScheduledTestID,
		&a.StartedAt,
		&a.CompletedAt,
		&a.TotalQuestions,
		&a.CorrectAnswers,
		&a.WrongAnswers,
		&a.Score,
		&a.ScorePercentage,
		&a.Passed,
		&a.Status,
		&a.TimeTakenSeconds,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attemptRepo) Create(ctx context.Context, attempt *model.QuizAttempt) (*model.QuizAttempt, bool, error) {
	q := `
        INSERT INTO quiz_attempts (id, user_id, quiz_id, scheduled_test_id, started_at, total_questions, status)
        VALUES ($1, $2, $3, $4, $5, $6, 'in_progress')
        ON CONFLICT (user_id, quiz_id) WHERE status = 'in_progress' DO NOTHING
        RETURNING ` + attemptColumns
	created, err := scanAttempt(r.pool.QueryRow(ctx, q,
		attempt.ID,
		attempt.UserID,
		attempt.QuizID,
		attempt.ScheduledTestID,
		attempt.StartedAt,
		attempt.TotalQuestions,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("create attempt for user %s quiz %s: %w", attempt.UserID, attempt.QuizID, err)
	}
	// Lost the race; hand back the winner.
	existing, err := r.FindInProgress(ctx, attempt.UserID, attempt.QuizID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *attemptRepo) FindInProgress(ctx context.Context, userID, quizID string) (*model.QuizAttempt, error) {
	q := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2 AND status = 'in_progress'`
	a, err := scanAttempt(r.pool.QueryRow(ctx, q, userID, quizID))
	if err != nil {
		return nil, wrapErr(err, "fetch in-progress attempt for user %s quiz %s", userID, quizID)
	}
	return a, nil
}

func (r *attemptRepo) MarkAbandoned(ctx context.Context, attemptID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE quiz_attempts SET status = 'abandoned' WHERE id = $1 AND status = 'in_progress'`, attemptID)
	if err != nil {
		return fmt.Errorf("abandon attempt %s: %w", attemptID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("abandon attempt %s: %w", attemptID, ErrNotInProgress)
	}
	return nil
}

func (r *attemptRepo) GetByID(ctx context.Context, attemptID string) (*model.QuizAttempt, error) {
	q := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE id = $1`
	a, err := scanAttempt(r.pool.QueryRow(ctx, q, attemptID))
	if err != nil {
		return nil, wrapErr(err, "fetch attempt %s", attemptID)
	}
	return a, nil
}

func (r *attemptRepo) GetAnswers(ctx context.Context, attemptID string) ([]model.AttemptAnswer, error) {
	const q = `
        SELECT attempt_id, question_id, submitted_answer, is_correct, time_spent_seconds, answered_at
        FROM attempt_answers
        WHERE attempt_id = $1
        ORDER BY answered_at, question_id
    `
	rows, err := r.pool.Query(ctx, q, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers for attempt %s: %w", attemptID, err)
	}
	defer rows.Close()

	var answers []model.AttemptAnswer
	for rows.Next() {
		var a model.AttemptAnswer
		var raw []byte
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &raw, &a.IsCorrect, &a.TimeSpentSeconds, &a.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer for attempt %s: %w", attemptID, err)
		}
		if err := json.Unmarshal(raw, &a.SubmittedAnswer); err != nil {
			return nil, fmt.Errorf("decode answer %s for attempt %s: %w", a.QuestionID, attemptID, err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers for attempt %s: %w", attemptID, err)
	}
	return answers, nil
}

func (r *attemptRepo) ListForUser(ctx context.Context, userID, quizID string) ([]model.QuizAttempt, error) {
	q := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE user_id = $1`
	args := []any{userID}
	if quizID != "" {
		q += ` AND quiz_id = $2`
		args = append(args, quizID)
	}
	q += ` ORDER BY started_at DESC, id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var attempts []model.QuizAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts for user %s: %w", userID, err)
	}
	return attempts, nil
}

func (r *attemptRepo) LatestByQuiz(ctx context.Context, userID string, quizIDs []string) (map[string]LatestAttempts, error) {
	out := make(map[string]LatestAttempts, len(quizIDs))
	if len(quizIDs) == 0 {
		return out, nil
	}
	q := `
        SELECT DISTINCT ON (quiz_id, status) ` + attemptColumns + `
        FROM quiz_attempts
        WHERE user_id = $1
          AND quiz_id = ANY ($2)
          AND status IN ('in_progress', 'completed')
        ORDER BY quiz_id, status, COALESCE(completed_at, started_at) DESC, id DESC
    `
	rows, err := r.pool.Query(ctx, q, userID, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("latest attempts for user %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		latest := out[a.QuizID]
		switch a.Status {
		case model.AttemptInProgress:
			latest.InProgress = a
		case model.AttemptCompleted:
			latest.LastCompleted = a
		}
		out[a.QuizID] = latest
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest attempts for user %s: %w", userID, err)
	}
	return out, nil
}

func (r *attemptRepo) HasAttemptsForQuiz(ctx context.Context, quizID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE quiz_id = $1)`, quizID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking attempts for quiz %s: %w", quizID, err)
	}
	return exists, nil
}

func (r *attemptRepo) Finalize(ctx context.Context, attemptID string, fn FinalizeFunc) (*model.QuizAttempt, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("starting transaction for attempt %s: %w", attemptID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	lockQ := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE id = $1 FOR UPDATE`
	locked, err := scanAttempt(tx.QueryRow(ctx, lockQ, attemptID))
	if err != nil {
		return nil, wrapErr(err, "lock attempt %s", attemptID)
	}

	completed, answers, err := fn(locked)
	if err != nil {
		return nil, err
	}

	const answerQ = `
        INSERT INTO attempt_answers (attempt_id, question_id, submitted_answer, is_correct, time_spent_seconds, answered_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	batch := &pgx.Batch{}
	for _, a := range answers {
		raw, err := json.Marshal(a.SubmittedAnswer)
		if err != nil {
			return nil, fmt.Errorf("encode answer %s for attempt %s: %w", a.QuestionID, attemptID, err)
		}
		batch.Queue(answerQ, attemptID, a.QuestionID, raw, a.IsCorrect, a.TimeSpentSeconds, answeredAt(a.AnsweredAt))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("inserting answers for attempt %s: %w", attemptID, err)
		}
	}

	finalQ := `
        UPDATE quiz_attempts
        SET status = 'completed',
            completed_at = $2,
            correct_answers = $3,
            wrong_answers = $4,
            score = $5,
            score_percentage = $6,
            passed = $7,
            time_taken_seconds = $8
        WHERE id = $1 AND status = 'in_progress'
        RETURNING ` + attemptColumns
	final, err := scanAttempt(tx.QueryRow(ctx, finalQ,
		attemptID,
		completed.CompletedAt,
		completed.CorrectAnswers,
		completed.WrongAnswers,
		completed.Score,
		completed.ScorePercentage,
		completed.Passed,
		completed.TimeTakenSeconds,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("finalize attempt %s: %w", attemptID, ErrNotInProgress)
		}
		return nil, fmt.Errorf("finalize attempt %s: %w", attemptID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing attempt %s: %w", attemptID, err)
	}
	return final, nil
}

// answeredAt defaults a zero timestamp to now for answers scored without one.
func answeredAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
