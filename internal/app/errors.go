package service

import "errors"

// Error taxonomy surfaced to callers. The HTTP layer maps these with
// errors.Is; background triggers log them instead.
var (
	// ErrInvalidInput flags malformed or out-of-range request parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound flags a missing job or scoring config.
	ErrNotFound = errors.New("not found")

	// ErrConflict flags an unforced recalculation against a job that is
	// already CALCULATING.
	ErrConflict = errors.New("recalculation already in progress")
)
