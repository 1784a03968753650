package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced holding, fact, envelope or
// snapshot does not exist. Surfaced synchronously at the boundary.
var ErrNotFound = errors.New("not found")

// ErrInconsistentSnapshot is reported when a persisted net-worth row violates
// netValue == totalAssets - totalDebts. It signals a failed or interleaved
// recompute, not a user error.
var ErrInconsistentSnapshot = errors.New("inconsistent net worth snapshot")

// ValidationError marks malformed input rejected before any fact is written.
type ValidationError struct {
	Reason string
}

// NewValidationError creates a ValidationError with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RecomputeError wraps a failure during a snapshot range rebuild. The range
// was not committed; the whole invocation is safe to retry.
type RecomputeError struct {
	UserID string
	Start  Day
	Err    error
}

func (e *RecomputeError) Error() string {
	return fmt.Sprintf("recompute for user %s from %s failed: %v", e.UserID, e.Start, e.Err)
}

func (e *RecomputeError) Unwrap() error { return e.Err }
