package service

import (
	"errors"
	"fmt"

	"learngate/internal/model"
	"learngate/internal/repository"
)

var (
	// ErrLimitExceeded is matched by every *LimitExceededError.
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidInput  = errors.New("invalid input")
)

// LimitExceededError reports a denied quota check together with the quota state.
type LimitExceededError struct {
	Status model.QuotaStatus
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("daily %s limit reached: used %d of %d", e.Status.Kind, e.Status.Used, e.Status.Limit)
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// translate maps repository sentinels onto the service taxonomy.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%s: already exists: %w", what, ErrInvalidState)
	case errors.Is(err, repository.ErrNotInProgress):
		return fmt.Errorf("%s: %w", what, ErrInvalidState)
	}
	return err
}
