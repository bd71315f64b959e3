// Package service orchestrates the candidate ranking engine: scoring,
// calculation, staleness bookkeeping, and bulk recalculation. It implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openhire/ranker/internal/adapters/bus"
	"github.com/openhire/ranker/internal/adapters/repository"
	"github.com/openhire/ranker/internal/domain/dedupe"
	"github.com/openhire/ranker/internal/domain/model"
	"github.com/openhire/ranker/pkg/logger"
)

// Default service configuration constants.
const (
	defaultHighBatchSize   = 5
	defaultNormalBatchSize = 2
	defaultBatchDelay      = time.Second
	defaultSweepInterval   = 30 * time.Second
	defaultSweepLimit      = 10
	defaultMaxBulkJobs     = 50
	defaultTopLimit        = 5
	defaultMaxTopLimit     = 100
	defaultDedupeSize      = 50_000
	defaultBusBuffer       = 1024
)

// Service wires the ranking engine together.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	bus     bus.Bus
	deduper dedupe.Deduper
	clock   func() time.Time
	logger  logger.Logger

	// Configuration
	databasePath    string
	busBuffer       int
	highBatchSize   int
	normalBatchSize int
	batchDelay      time.Duration
	sweepInterval   time.Duration
	sweepLimit      int
	maxBulkJobs     int
	defaultTopLimit int
	maxTopLimit     int
	dedupeSize      int

	// State
	started bool
	stopCh  chan struct{}
	bg      sync.WaitGroup
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		clock:           time.Now,
		busBuffer:       defaultBusBuffer,
		highBatchSize:   defaultHighBatchSize,
		normalBatchSize: defaultNormalBatchSize,
		batchDelay:      defaultBatchDelay,
		sweepInterval:   defaultSweepInterval,
		sweepLimit:      defaultSweepLimit,
		maxBulkJobs:     defaultMaxBulkJobs,
		defaultTopLimit: defaultTopLimit,
		maxTopLimit:     defaultMaxTopLimit,
		dedupeSize:      defaultDedupeSize,
		stopCh:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes components and subscribes the invalidation handlers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("ranking")
	}

	if s.store == nil {
		if s.databasePath != "" {
			store, err := repository.NewSQLiteStore(s.databasePath)
			if err != nil {
				return fmt.Errorf("open ranking store: %w", err)
			}
			s.store = store
			s.logger.Info(ctx, "using sqlite store", logger.String("path", s.databasePath))
		} else {
			s.store = repository.NewMemStore()
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	if s.bus == nil {
		s.bus = bus.New(
			bus.WithBufferSize(s.busBuffer),
			bus.WithLogger(s.logger.Named("bus")),
		)
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)

	s.subscribeInvalidator()

	if s.sweepInterval > 0 {
		s.bg.Add(1)
		go s.runSweeper()
	}

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("highBatchSize", s.highBatchSize),
		logger.Int("normalBatchSize", s.normalBatchSize),
		logger.Duration("sweepInterval", s.sweepInterval),
	)
	return nil
}

// Stop shuts the service down: sweeper first, then bus, then store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	close(s.stopCh)
	s.bg.Wait()

	if err := s.bus.Close(); err != nil {
		s.logger.Error(ctx, "error closing bus", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// runSweeper periodically drains stale jobs through the bulk processor.
func (s *Service) runSweeper() {
	defer s.bg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx := context.Background()
			result, err := s.ScheduleStaleRecalculations(ctx)
			if err != nil {
				s.logger.Error(ctx, "stale sweep failed", logger.Error(err))
				continue
			}
			if len(result.Results)+len(result.Failures) > 0 {
				s.logger.Info(ctx, "stale sweep finished",
					logger.Int("recalculated", len(result.Results)),
					logger.Int("failed", len(result.Failures)),
				)
			}
		}
	}
}

// TopCandidates is the ranked read result with its status metadata.
type TopCandidates struct {
	JobID      string
	Candidates []model.CandidateRanking
	Status     model.JobRankingStatus
}

// GetTopCandidates returns the job's ranked candidates. Reads never block on
// recalculation: stale or missing data is returned as-is and a background
// refresh is kicked off without being awaited.
func (s *Service) GetTopCandidates(ctx context.Context, jobID string, limit int) (TopCandidates, error) {
	if limit == 0 {
		limit = s.defaultTopLimit
	}
	if limit < 1 || limit > s.maxTopLimit {
		return TopCandidates{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, s.maxTopLimit)
	}

	status, err := s.GetJobRankingStatus(ctx, jobID)
	if err != nil {
		return TopCandidates{}, err
	}

	rows, err := s.store.TopCandidates(ctx, jobID, limit)
	if err != nil {
		return TopCandidates{}, fmt.Errorf("read rankings: %w", err)
	}

	if status.Status == model.StateStale || len(rows) == 0 {
		if status.Status != model.StateCalculating {
			s.recalculateAsync(jobID, "READ_REFRESH")
		}
	}

	return TopCandidates{JobID: jobID, Candidates: rows, Status: status}, nil
}

// GetJobRankingStatus returns the job's status record, synthesizing a STALE
// zero-candidate record when no calculation has ever run.
func (s *Service) GetJobRankingStatus(ctx context.Context, jobID string) (model.JobRankingStatus, error) {
	status, found, err := s.store.Status(ctx, jobID)
	if err != nil {
		return model.JobRankingStatus{}, fmt.Errorf("read status: %w", err)
	}
	if !found {
		return model.JobRankingStatus{
			JobID:  jobID,
			Status: model.StateStale,
		}, nil
	}
	return status, nil
}

// RecalculateJobRankings recomputes a job's rankings in the foreground.
// Unless forced, it fails with ErrConflict while the job is CALCULATING.
func (s *Service) RecalculateJobRankings(ctx context.Context, jobID, trigger string, force bool) (model.RankingCalculationResult, error) {
	exists, err := s.store.JobExists(ctx, jobID)
	if err != nil {
		return model.RankingCalculationResult{}, fmt.Errorf("check job: %w", err)
	}
	if !exists {
		return model.RankingCalculationResult{}, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	return s.calculate(ctx, jobID, trigger, force)
}

// recalculateAsync fires a detached background recalculation. Failures are
// logged and leave the job's status record for a future attempt.
func (s *Service) recalculateAsync(jobID, trigger string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(context.Background(), "background recalculation panicked",
					logger.String("jobID", jobID),
					logger.Any("panic", r),
				)
			}
		}()

		ctx := context.Background()
		if _, err := s.calculate(ctx, jobID, trigger, false); err != nil {
			s.logger.Warn(ctx, "background recalculation failed",
				logger.String("jobID", jobID),
				logger.String("trigger", trigger),
				logger.Error(err),
			)
		}
	}()
}

// SubmitAssessment stores a submission and announces it on the bus.
func (s *Service) SubmitAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error) {
	if a.JobID == "" || a.ApplicantID == "" {
		return model.Assessment{}, fmt.Errorf("%w: jobId and applicantId are required", ErrInvalidInput)
	}
	exists, err := s.store.JobExists(ctx, a.JobID)
	if err != nil {
		return model.Assessment{}, fmt.Errorf("check job: %w", err)
	}
	if !exists {
		return model.Assessment{}, fmt.Errorf("%w: job %s", ErrNotFound, a.JobID)
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = s.clock()
	}

	if err := s.store.SaveAssessment(ctx, a); err != nil {
		return model.Assessment{}, fmt.Errorf("save assessment: %w", err)
	}

	s.bus.Publish(ctx, model.Event{
		Type:         model.EventAssessmentSubmitted,
		AssessmentID: a.ID,
		JobID:        a.JobID,
		ApplicantID:  a.ApplicantID,
	})
	return a, nil
}

// UpsertScoringConfig stores a config and announces the change.
func (s *Service) UpsertScoringConfig(ctx context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return model.ScoringConfig{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	saved, err := s.store.SaveConfig(ctx, cfg)
	if err != nil {
		return model.ScoringConfig{}, fmt.Errorf("save config: %w", err)
	}

	s.bus.Publish(ctx, model.Event{
		Type:      model.EventScoringConfigChanged,
		ConfigID:  saved.ID,
		JobID:     saved.JobID,
		IsDefault: saved.IsDefault,
	})
	return saved, nil
}

// UpsertJob stores a job record and announces the update.
func (s *Service) UpsertJob(ctx context.Context, j model.Job) (model.Job, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if err := s.store.SaveJob(ctx, j); err != nil {
		return model.Job{}, fmt.Errorf("save job: %w", err)
	}

	s.bus.Publish(ctx, model.Event{
		Type:  model.EventJobUpdated,
		JobID: j.ID,
	})
	return j, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"highBatchSize":   s.highBatchSize,
		"normalBatchSize": s.normalBatchSize,
		"sweepLimit":      s.sweepLimit,
	}

	if s.started {
		ctx := context.Background()
		if jobs, err := s.store.CountJobs(ctx); err == nil {
			stats["totalJobs"] = jobs
		}
		if stale, err := s.store.CountStale(ctx); err == nil {
			stats["staleJobs"] = stale
		}
		stats["dedupeSize"] = s.deduper.Size()
	}

	return stats
}
