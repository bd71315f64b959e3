package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrNoConfig = errors.New("no scoring config available")
)
