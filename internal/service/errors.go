package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliskhannn/mastery-engine/internal/repository"
)

var (
	// ErrValidation is returned for malformed input, before any write happens.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = repository.ErrNotFound
	// ErrConcurrencyConflict asks the caller to retry the whole submission.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrTransactionFailure means a write failed and every change was rolled back.
	ErrTransactionFailure = errors.New("transaction failed")

	ErrStageNotMastered = fmt.Errorf("%w: current stage is not mastered", ErrValidation)
	ErrFinalStage       = fmt.Errorf("%w: EXPLORE is the final stage", ErrValidation)
	ErrEmptyStage       = fmt.Errorf("%w: next stage has no criteria", ErrValidation)
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify maps an error from a unit of work onto the service taxonomy.
// Validation and not-found errors keep their identity, conflicts become
// ErrConcurrencyConflict and anything else ErrTransactionFailure.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%s: %w: %w", op, ErrConcurrencyConflict, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrTransactionFailure, err)
	}
}
