package service

import (
	"context"

	"learngate/internal/model"
)

// ContentCatalog is the read-only source of quiz metadata and correct answers.
type ContentCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (*model.Quiz, error)
}
