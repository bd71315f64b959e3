package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound              = errors.New("not found")
	ErrCalculationInProgress = errors.New("calculation already in progress")
	ErrClosed                = errors.New("store closed")
)
