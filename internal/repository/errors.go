package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrNotInProgress is returned when an attempt changed state before it could be finalized.
	ErrNotInProgress = errors.New("attempt is not in progress")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("conflict")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// wrapErr translates pgx.ErrNoRows into ErrNotFound and unique violations into
// ErrConflict, and wraps everything else.
func wrapErr(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf(format+": %w: %w", append(args, ErrConflict, err)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
