package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openhire/ranker/internal/adapters/repository"
	"github.com/openhire/ranker/internal/domain/model"
	"github.com/openhire/ranker/internal/domain/scoring"
	"github.com/openhire/ranker/pkg/logger"
	"github.com/openhire/ranker/pkg/metrics"
)

// calculate runs one full ranking calculation for a job: resolve the
// effective config, score every submission, assign dense ranks, and swap the
// job's rows and status in one transactional replace. On failure the status
// goes to ERROR and the previous rows stay visible.
func (s *Service) calculate(ctx context.Context, jobID, trigger string, force bool) (model.RankingCalculationResult, error) {
	start := time.Now()

	if err := s.store.TryBeginCalculation(ctx, jobID, trigger, force); err != nil {
		if errors.Is(err, repository.ErrCalculationInProgress) {
			metrics.RecordCalculationConflict()
			return model.RankingCalculationResult{}, fmt.Errorf("%w: job %s", ErrConflict, jobID)
		}
		return model.RankingCalculationResult{}, fmt.Errorf("begin calculation: %w", err)
	}

	result, err := s.runCalculation(ctx, jobID, trigger, start)
	if err != nil {
		metrics.RecordCalculation("error")
		s.markError(ctx, jobID, trigger, err)
		return model.RankingCalculationResult{}, err
	}

	metrics.RecordCalculation("completed")
	metrics.RecordCalculationDuration(float64(result.CalculationDuration.Milliseconds()))
	metrics.RecordCandidatesRanked(result.TotalCandidates)

	s.bus.Publish(ctx, model.Event{
		Type:            model.EventRankingCalculated,
		JobID:           jobID,
		TotalCandidates: result.TotalCandidates,
		DurationMS:      result.CalculationDuration.Milliseconds(),
	})

	s.logger.Info(ctx, "ranking calculated",
		logger.String("jobID", jobID),
		logger.String("trigger", trigger),
		logger.Int("candidates", result.TotalCandidates),
		logger.Duration("duration", result.CalculationDuration),
	)
	return result, nil
}

func (s *Service) runCalculation(ctx context.Context, jobID, trigger string, start time.Time) (model.RankingCalculationResult, error) {
	cfg, err := s.effectiveConfig(ctx, jobID)
	if err != nil {
		return model.RankingCalculationResult{}, err
	}

	assessments, err := s.store.ListAssessments(ctx, jobID)
	if err != nil {
		return model.RankingCalculationResult{}, fmt.Errorf("load assessments: %w", err)
	}

	now := s.clock()
	rows := s.scoreAndRank(jobID, assessments, cfg, now)

	duration := time.Since(start)
	status := model.JobRankingStatus{
		JobID:                jobID,
		Status:               model.StateCompleted,
		TotalCandidates:      len(rows),
		LastCalculatedAt:     now,
		CalculationDuration:  duration,
		ScoringConfigVersion: cfg.Version,
		TriggerEvent:         trigger,
	}

	if err := s.store.ReplaceRankings(ctx, jobID, rows, status); err != nil {
		return model.RankingCalculationResult{}, fmt.Errorf("replace rankings: %w", err)
	}

	return model.RankingCalculationResult{
		JobID:                jobID,
		TotalCandidates:      len(rows),
		CalculationDuration:  duration,
		ScoringConfigVersion: cfg.Version,
	}, nil
}

// effectiveConfig resolves the config applied to a job: its override when
// present, else the global default.
func (s *Service) effectiveConfig(ctx context.Context, jobID string) (model.ScoringConfig, error) {
	override, err := s.store.JobConfig(ctx, jobID)
	if err != nil {
		return model.ScoringConfig{}, fmt.Errorf("load job config: %w", err)
	}
	fallback, err := s.store.DefaultConfig(ctx)
	if err != nil {
		return model.ScoringConfig{}, fmt.Errorf("load default config: %w", err)
	}

	cfg, err := scoring.Resolve(override, fallback)
	if err != nil {
		return model.ScoringConfig{}, fmt.Errorf("%w: no scoring config for job %s", ErrNotFound, jobID)
	}
	return cfg, nil
}

// scoreAndRank scores every submission and assigns dense ranks: score
// descending, ties broken by earlier submission, then by applicant id for
// full determinism.
func (s *Service) scoreAndRank(jobID string, assessments []model.Assessment, cfg model.ScoringConfig, now time.Time) []model.CandidateRanking {
	type scored struct {
		assessment model.Assessment
		result     scoring.Result
	}

	results := make([]scored, 0, len(assessments))
	for _, a := range assessments {
		results = append(results, scored{assessment: a, result: scoring.Score(a, cfg, now)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].result.Score != results[j].result.Score {
			return results[i].result.Score > results[j].result.Score
		}
		if !results[i].assessment.SubmittedAt.Equal(results[j].assessment.SubmittedAt) {
			return results[i].assessment.SubmittedAt.Before(results[j].assessment.SubmittedAt)
		}
		return results[i].assessment.ApplicantID < results[j].assessment.ApplicantID
	})

	rows := make([]model.CandidateRanking, len(results))
	for i, r := range results {
		var bonus float64
		if b := r.result.Breakdown.RecencyBonus; b != nil {
			bonus = b.Points
		}
		rows[i] = model.CandidateRanking{
			ID:                   uuid.NewString(),
			JobID:                jobID,
			ApplicantID:          r.assessment.ApplicantID,
			AssessmentID:         r.assessment.ID,
			Rank:                 i + 1,
			Score:                r.result.Score,
			MaxPossibleScore:     r.result.MaxPossibleScore,
			Percentage:           r.result.Percentage,
			CorrectAnswers:       r.result.Breakdown.Correct.Count,
			IncorrectAnswers:     r.result.Breakdown.Incorrect.Count,
			RecencyBonus:         bonus,
			ScoringConfigVersion: cfg.Version,
			CalculatedAt:         now,
			IsStale:              false,
		}
	}
	return rows
}

// markError records a failed calculation; existing ranking rows are left
// untouched since stale data beats no data.
func (s *Service) markError(ctx context.Context, jobID, trigger string, cause error) {
	status := model.JobRankingStatus{
		JobID:        jobID,
		Status:       model.StateError,
		TriggerEvent: trigger,
		ErrorMessage: cause.Error(),
	}
	if prev, found, err := s.store.Status(ctx, jobID); err == nil && found {
		status.TotalCandidates = prev.TotalCandidates
		status.LastCalculatedAt = prev.LastCalculatedAt
		status.CalculationDuration = prev.CalculationDuration
		status.ScoringConfigVersion = prev.ScoringConfigVersion
	}
	if err := s.store.SetStatus(ctx, status); err != nil {
		s.logger.Error(ctx, "failed to record calculation error",
			logger.String("jobID", jobID),
			logger.Error(err),
		)
	}
}
