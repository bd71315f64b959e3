// Package scoring computes scores from assessment submissions. The engine is
// pure: no I/O, no shared state, and "now" is an explicit parameter so the
// recency comparison is testable.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/openhire/ranker/internal/domain/model"
)

const (
	hoursPerDay    = 24
	percentFactor  = 100
	explanationCap = 4
)

// Bucket aggregates a correctness class in the breakdown.
type Bucket struct {
	Count  int     `json:"count"`
	Points float64 `json:"points"`
}

// Bonus records an applied recency bonus.
type Bonus struct {
	Percentage float64 `json:"percentage"`
	Points     float64 `json:"points"`
}

// Breakdown itemizes how the final score was assembled. Incorrect.Points is
// the (non-positive) contribution of negative marking. RecencyBonus is nil
// when the config defines no bonus or the submission is outside the window.
type Breakdown struct {
	Correct      Bucket `json:"correct"`
	Incorrect    Bucket `json:"incorrect"`
	RecencyBonus *Bonus `json:"recencyBonus,omitempty"`
}

// Result is the outcome of scoring one submission. Derived, never persisted
// standalone; the calculator embeds the fields into ranking rows.
type Result struct {
	Score            float64   `json:"score"`
	MaxPossibleScore float64   `json:"maxPossibleScore"`
	Percentage       float64   `json:"percentage"`
	Breakdown        Breakdown `json:"breakdown"`
	Explanation      []string  `json:"explanation"`
}

// Score evaluates a submission under cfg.
//
// Correct answers contribute +weight, incorrect answers contribute
// -(weight x negativeMarkingFraction), unanswered questions contribute
// nothing and count in neither bucket. The negative total is clamped to zero
// only after the recency bonus, not per question.
func Score(a model.Assessment, cfg model.ScoringConfig, now time.Time) Result {
	var (
		base        float64
		maxPossible float64
		correct     Bucket
		incorrect   Bucket
	)

	for _, ans := range a.Answers {
		maxPossible += ans.Weight
		if !ans.Answered() {
			continue
		}
		if ans.IsCorrect {
			correct.Count++
			correct.Points += ans.Weight
			base += ans.Weight
			continue
		}
		incorrect.Count++
		if cfg.NegativeMarkingFraction > 0 {
			deduction := deductionBase(ans) * cfg.NegativeMarkingFraction
			incorrect.Points -= deduction
			base -= deduction
		}
	}

	bonus := recencyBonus(base, cfg, a.SubmittedAt, now)

	final := base
	if bonus != nil {
		final += bonus.Points
	}
	final = math.Max(0, final)

	percentage := 0.0
	if maxPossible > 0 {
		percentage = final / maxPossible * percentFactor
	}

	return Result{
		Score:            final,
		MaxPossibleScore: maxPossible,
		Percentage:       percentage,
		Breakdown: Breakdown{
			Correct:      correct,
			Incorrect:    incorrect,
			RecencyBonus: bonus,
		},
		Explanation: explain(correct, incorrect, bonus, cfg, final, maxPossible, percentage),
	}
}

// deductionBase returns the per-question base for negative marking. A
// positive NegativeWeight overrides the question weight.
func deductionBase(ans model.AssessmentAnswer) float64 {
	if ans.NegativeWeight > 0 {
		return ans.NegativeWeight
	}
	return ans.Weight
}

// recencyBonus returns the applied bonus, or nil when the config defines no
// bonus or the submission falls outside the window. The boundary day is
// in-window. The bonus is never negative.
func recencyBonus(base float64, cfg model.ScoringConfig, submittedAt, now time.Time) *Bonus {
	if cfg.RecencyWindowDays <= 0 || cfg.RecencyBoostPercent <= 0 {
		return nil
	}
	window := time.Duration(cfg.RecencyWindowDays) * hoursPerDay * time.Hour
	age := now.Sub(submittedAt)
	if age < 0 || age > window {
		return nil
	}
	points := base * cfg.RecencyBoostPercent / percentFactor
	if points < 0 {
		points = 0
	}
	return &Bonus{Percentage: cfg.RecencyBoostPercent, Points: points}
}

// explain renders the fixed four-step narrative: correctness, negative
// marking, recency, final.
func explain(correct, incorrect Bucket, bonus *Bonus, cfg model.ScoringConfig, final, maxPossible, percentage float64) []string {
	steps := make([]string, 0, explanationCap)

	answered := correct.Count + incorrect.Count
	steps = append(steps, fmt.Sprintf(
		"answered %d questions, %d correct for %.2f points",
		answered, correct.Count, correct.Points,
	))

	if cfg.NegativeMarkingFraction > 0 && incorrect.Count > 0 {
		steps = append(steps, fmt.Sprintf(
			"negative marking (%.0f%%) deducted %.2f points over %d incorrect answers",
			cfg.NegativeMarkingFraction*percentFactor, -incorrect.Points, incorrect.Count,
		))
	} else {
		steps = append(steps, "no negative marking applied")
	}

	if bonus != nil {
		steps = append(steps, fmt.Sprintf(
			"recency bonus of %.0f%% added %.2f points (submitted within %d days)",
			bonus.Percentage, bonus.Points, cfg.RecencyWindowDays,
		))
	} else {
		steps = append(steps, "no recency bonus applied")
	}

	steps = append(steps, fmt.Sprintf(
		"final score %.2f of %.2f (%.2f%%)",
		final, maxPossible, percentage,
	))

	return steps
}
