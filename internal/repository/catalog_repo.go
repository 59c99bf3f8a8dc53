package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"learngate/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository reads quizzes and their questions from the content tables.
type CatalogRepository interface {
	GetQuiz(ctx context.Context, quizID string) (*model.Quiz, error)
}

type catalogRepo struct {
	pool *pgxpool.Pool
}

// NewCatalogRepo creates a new CatalogRepository.
func NewCatalogRepo(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepo{pool: pool}
}

func (r *catalogRepo) GetQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	const quizQ = `
        SELECT id, title, number_of_questions, passing_percentage::float8
        FROM quizzes
        WHERE id = $1
    `
	var quiz model.Quiz
	err := r.pool.QueryRow(ctx, quizQ, quizID).Scan(&quiz.ID, &quiz.Title, &quiz.NumberOfQuestions, &quiz.PassingPercentage)
	if err != nil {
		return nil, wrapErr(err, "fetch quiz %s", quizID)
	}

	const questionsQ = `
        SELECT id, quiz_id, correct_answer, points, position
        FROM quiz_questions
        WHERE quiz_id = $1
        ORDER BY position, id
    `
	rows, err := r.pool.Query(ctx, questionsQ, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions for quiz %s: %w", quizID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var q model.Question
		var raw []byte
		if err := rows.Scan(&q.ID, &q.QuizID, &raw, &q.Points, &q.Position); err != nil {
			return nil, fmt.Errorf("scan question for quiz %s: %w", quizID, err)
		}
		if err := json.Unmarshal(raw, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("decode correct answer of question %s: %w", q.ID, err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions for quiz %s: %w", quizID, err)
	}
	return &quiz, nil
}
