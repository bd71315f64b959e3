package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/openhire/ranker/internal/adapters/repository"
	"github.com/openhire/ranker/internal/domain/model"
	"github.com/openhire/ranker/pkg/logger"
	"github.com/openhire/ranker/pkg/metrics"
)

// InvalidationRequest selects rankings to mark stale. At least one selector
// must be set; invalidation never deletes, it only flags.
type InvalidationRequest struct {
	JobID           string
	ScoringConfigID string
	ApplicantID     string
	TriggerEvent    string
}

// InvalidateRankings marks every affected job's ranking stale and returns
// the number of jobs touched.
func (s *Service) InvalidateRankings(ctx context.Context, req InvalidationRequest) (int, error) {
	if req.JobID == "" && req.ScoringConfigID == "" && req.ApplicantID == "" {
		return 0, fmt.Errorf("%w: one of jobId, scoringConfigId, applicantId is required", ErrInvalidInput)
	}

	jobSet := make(map[string]struct{})
	if req.JobID != "" {
		jobSet[req.JobID] = struct{}{}
		metrics.RecordInvalidation("job")
	}
	if req.ScoringConfigID != "" {
		jobs, err := s.store.JobsUsingConfig(ctx, req.ScoringConfigID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, fmt.Errorf("%w: scoring config %s", ErrNotFound, req.ScoringConfigID)
			}
			return 0, fmt.Errorf("resolve config jobs: %w", err)
		}
		for _, jobID := range jobs {
			jobSet[jobID] = struct{}{}
		}
		metrics.RecordInvalidation("config")
	}
	if req.ApplicantID != "" {
		jobs, err := s.store.JobsForApplicant(ctx, req.ApplicantID)
		if err != nil {
			return 0, fmt.Errorf("resolve applicant jobs: %w", err)
		}
		for _, jobID := range jobs {
			jobSet[jobID] = struct{}{}
		}
		metrics.RecordInvalidation("applicant")
	}

	jobIDs := make([]string, 0, len(jobSet))
	for jobID := range jobSet {
		jobIDs = append(jobIDs, jobID)
	}

	touched, err := s.store.MarkStale(ctx, jobIDs, req.TriggerEvent)
	if err != nil {
		return 0, fmt.Errorf("mark stale: %w", err)
	}

	s.logger.Info(ctx, "rankings invalidated",
		logger.Int("jobs", touched),
		logger.String("trigger", req.TriggerEvent),
	)
	return touched, nil
}

// subscribeInvalidator registers the staleness controller on the bus. The
// handler dedupes on event id so redelivered events are no-ops.
//
// Trigger policy: an assessment submission is high-locality and cheap, so it
// gets an immediate background recalculation of its one job. A config change
// can touch many jobs, so those are only marked stale and left to the bulk
// sweep. A job update is mark-only; the read path refreshes on demand.
func (s *Service) subscribeInvalidator() {
	s.bus.Subscribe("invalidator", []model.EventType{
		model.EventAssessmentSubmitted,
		model.EventScoringConfigChanged,
		model.EventJobUpdated,
	}, func(ctx context.Context, e model.Event) error {
		if s.deduper.SeenAndRecord(ctx, e.EventID) {
			return nil
		}

		switch e.Type {
		case model.EventAssessmentSubmitted:
			return s.onAssessmentSubmitted(ctx, e)
		case model.EventScoringConfigChanged:
			return s.onScoringConfigChanged(ctx, e)
		case model.EventJobUpdated:
			return s.onJobUpdated(ctx, e)
		default:
			return nil
		}
	})
}

func (s *Service) onAssessmentSubmitted(ctx context.Context, e model.Event) error {
	trigger := fmt.Sprintf("%s:%s", model.EventAssessmentSubmitted, e.AssessmentID)
	if _, err := s.store.MarkStale(ctx, []string{e.JobID}, trigger); err != nil {
		return fmt.Errorf("mark stale: %w", err)
	}
	metrics.RecordInvalidation("assessment_submitted")
	s.recalculateAsync(e.JobID, trigger)
	return nil
}

func (s *Service) onScoringConfigChanged(ctx context.Context, e model.Event) error {
	trigger := fmt.Sprintf("%s:%s", model.EventScoringConfigChanged, e.ConfigID)
	jobs, err := s.store.JobsUsingConfig(ctx, e.ConfigID)
	if err != nil {
		return fmt.Errorf("resolve config jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}
	touched, err := s.store.MarkStale(ctx, jobs, trigger)
	if err != nil {
		return fmt.Errorf("mark stale: %w", err)
	}
	metrics.RecordInvalidation("config_changed")
	s.logger.Info(ctx, "config change marked jobs stale",
		logger.String("configID", e.ConfigID),
		logger.Bool("isDefault", e.IsDefault),
		logger.Int("jobs", touched),
	)
	return nil
}

func (s *Service) onJobUpdated(ctx context.Context, e model.Event) error {
	trigger := fmt.Sprintf("%s:%s", model.EventJobUpdated, e.JobID)
	if _, err := s.store.MarkStale(ctx, []string{e.JobID}, trigger); err != nil {
		return fmt.Errorf("mark stale: %w", err)
	}
	metrics.RecordInvalidation("job_updated")
	return nil
}
