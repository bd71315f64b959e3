package scoring

import "github.com/openhire/ranker/internal/domain/model"

// Resolve picks the config actually applied to a job: the job override when
// present, else the global default. Kept as a pure function so the engine's
// config dependency stays explicit and testable on its own.
func Resolve(override, fallback *model.ScoringConfig) (model.ScoringConfig, error) {
	if override != nil {
		return *override, nil
	}
	if fallback != nil {
		return *fallback, nil
	}
	return model.ScoringConfig{}, ErrNoConfig
}
