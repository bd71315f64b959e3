package model

import "errors"

// Sentinel kinds for model validation.
var (
	ErrInvalidConfig = errors.New("invalid scoring config")
)
