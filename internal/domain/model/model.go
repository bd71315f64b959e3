// Package model contains domain models passed between layers.
package model

import "time"

// RankingState enumerates the lifecycle of a job's ranking rows.
type RankingState string

// Ranking states for a job.
const (
	StateCalculating RankingState = "CALCULATING"
	StateCompleted   RankingState = "COMPLETED"
	StateStale       RankingState = "STALE"
	StateError       RankingState = "ERROR"
)

// ScoringConfig controls how submissions are scored for a job.
// Exactly one config is the global default (JobID empty, IsDefault true);
// a job may carry at most one override which wins over the default.
type ScoringConfig struct {
	ID                      string
	NegativeMarkingFraction float64 // in [0,1]; 0 disables negative marking
	RecencyWindowDays       int     // 0 disables the recency bonus
	RecencyBoostPercent     float64 // in [0,100]; requires a positive window
	IsDefault               bool
	JobID                   string // empty for the global default
	Version                 int    // bumped on every change, recorded with rankings
}

// Validate checks the config invariants.
func (c ScoringConfig) Validate() error {
	if c.NegativeMarkingFraction < 0 || c.NegativeMarkingFraction > 1 {
		return ErrInvalidConfig
	}
	if c.RecencyBoostPercent < 0 || c.RecencyBoostPercent > 100 {
		return ErrInvalidConfig
	}
	if c.RecencyBoostPercent > 0 && c.RecencyWindowDays <= 0 {
		return ErrInvalidConfig
	}
	if c.IsDefault && c.JobID != "" {
		return ErrInvalidConfig
	}
	return nil
}

// AssessmentAnswer is one question's answer within a submission. Correctness
// is fixed at submission time; scoring never re-derives it. An answer row
// exists for every template question; AnswerText nil means unanswered.
type AssessmentAnswer struct {
	QuestionID     string
	AnswerText     *string
	IsCorrect      bool
	Weight         float64
	NegativeWeight float64
}

// Answered reports whether the candidate actually answered the question.
func (a AssessmentAnswer) Answered() bool { return a.AnswerText != nil }

// Assessment is a candidate's submission against a job.
type Assessment struct {
	ID          string
	JobID       string
	ApplicantID string
	Answers     []AssessmentAnswer
	SubmittedAt time.Time
}

// Job is the minimal job record the engine needs.
type Job struct {
	ID    string
	Title string
}

// CandidateRanking is one ranked row per (job, applicant), produced by the
// most recent completed calculation. Superseded rows are replaced in place.
type CandidateRanking struct {
	ID                   string
	JobID                string
	ApplicantID          string
	AssessmentID         string
	Rank                 int
	Score                float64
	MaxPossibleScore     float64
	Percentage           float64
	CorrectAnswers       int
	IncorrectAnswers     int
	RecencyBonus         float64
	ScoringConfigVersion int
	CalculatedAt         time.Time
	IsStale              bool
}

// JobRankingStatus tracks the per-job ranking lifecycle.
type JobRankingStatus struct {
	JobID                string
	Status               RankingState
	TotalCandidates      int
	LastCalculatedAt     time.Time
	CalculationDuration  time.Duration
	ScoringConfigVersion int
	TriggerEvent         string
	ErrorMessage         string
}

// RankingCalculationResult summarizes one completed calculation.
type RankingCalculationResult struct {
	JobID                string
	TotalCandidates      int
	CalculationDuration  time.Duration
	ScoringConfigVersion int
}
