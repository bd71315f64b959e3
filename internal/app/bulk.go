package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openhire/ranker/internal/domain/model"
	"github.com/openhire/ranker/pkg/logger"
	"github.com/openhire/ranker/pkg/metrics"
)

// Priority selects the bulk processor's pacing.
type Priority string

// Bulk processing priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// BulkFailure records one job's failure inside a bulk run.
type BulkFailure struct {
	JobID string
	Error string
}

// BulkResult is a bulk run's partial-success summary.
type BulkResult struct {
	Results  []model.RankingCalculationResult
	Failures []BulkFailure
}

// ProcessBulkRankings recalculates many jobs with bounded concurrency.
// Jobs run in batches sized by priority; a batch settles completely before
// the next starts, and normal priority pauses between batches to shed load.
// Per-job failures are collected, never propagated.
func (s *Service) ProcessBulkRankings(ctx context.Context, jobIDs []string, trigger string, priority Priority) (BulkResult, error) {
	if len(jobIDs) == 0 {
		return BulkResult{}, fmt.Errorf("%w: jobIds must not be empty", ErrInvalidInput)
	}
	if len(jobIDs) > s.maxBulkJobs {
		return BulkResult{}, fmt.Errorf("%w: at most %d jobIds per request", ErrInvalidInput, s.maxBulkJobs)
	}

	switch priority {
	case PriorityHigh, PriorityNormal:
	case "":
		priority = PriorityNormal
	default:
		return BulkResult{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}

	metrics.RecordBulkRun(string(priority))
	return s.processBatches(ctx, jobIDs, trigger, priority), nil
}

func (s *Service) processBatches(ctx context.Context, jobIDs []string, trigger string, priority Priority) BulkResult {
	batchSize := s.normalBatchSize
	if priority == PriorityHigh {
		batchSize = s.highBatchSize
	}

	var (
		mu     sync.Mutex
		result BulkResult
	)

	for start := 0; start < len(jobIDs); start += batchSize {
		end := start + batchSize
		if end > len(jobIDs) {
			end = len(jobIDs)
		}
		batch := jobIDs[start:end]

		metrics.RecordBulkBatch()

		var wg sync.WaitGroup
		for _, jobID := range batch {
			wg.Add(1)
			go func(jobID string) {
				defer wg.Done()

				res, err := s.calculate(ctx, jobID, trigger, false)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					metrics.RecordBulkJobFailure()
					result.Failures = append(result.Failures, BulkFailure{JobID: jobID, Error: err.Error()})
					return
				}
				result.Results = append(result.Results, res)
			}(jobID)
		}
		wg.Wait()

		// Load shedding between normal-priority batches.
		if priority == PriorityNormal && end < len(jobIDs) && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return result
			case <-time.After(s.batchDelay):
			}
		}
	}

	if len(result.Failures) > 0 {
		s.logger.Warn(ctx, "bulk run finished with failures",
			logger.Int("succeeded", len(result.Results)),
			logger.Int("failed", len(result.Failures)),
			logger.String("trigger", trigger),
		)
	}
	return result
}

// ScheduleStaleRecalculations drains the stale backlog: it picks up to the
// configured limit of STALE jobs and runs them at normal priority. This is
// the mechanism behind config-change invalidations.
func (s *Service) ScheduleStaleRecalculations(ctx context.Context) (BulkResult, error) {
	stale, err := s.store.ListStaleJobs(ctx, s.sweepLimit)
	if err != nil {
		return BulkResult{}, fmt.Errorf("list stale jobs: %w", err)
	}
	if len(stale) == 0 {
		return BulkResult{}, nil
	}

	metrics.RecordBulkRun(string(PriorityNormal))
	return s.processBatches(ctx, stale, "STALE_SWEEP", PriorityNormal), nil
}
