package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openhire/ranker/internal/domain/model"
	"github.com/openhire/ranker/pkg/metrics"
)

// MemStore implements Store with plain maps behind a RWMutex. It is the
// zero-config default and the test double; rankings are recomputed wholesale
// per job, so no ordered index is maintained between calculations.
type MemStore struct {
	mu sync.RWMutex

	rankings map[string][]model.CandidateRanking // jobID -> rows sorted by rank
	statuses map[string]model.JobRankingStatus

	assessments map[string]map[string]model.Assessment // jobID -> applicantID -> submission
	byApplicant map[string]map[string]struct{}         // applicantID -> jobIDs

	configs    map[string]model.ScoringConfig // configID -> config
	overrides  map[string]string              // jobID -> configID
	defaultCfg string                         // configID of the global default

	jobs map[string]model.Job

	closed bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		rankings:    make(map[string][]model.CandidateRanking),
		statuses:    make(map[string]model.JobRankingStatus),
		assessments: make(map[string]map[string]model.Assessment),
		byApplicant: make(map[string]map[string]struct{}),
		configs:     make(map[string]model.ScoringConfig),
		overrides:   make(map[string]string),
		jobs:        make(map[string]model.Job),
	}
}

// ReplaceRankings swaps a job's rows and status under one lock acquisition.
func (s *MemStore) ReplaceRankings(_ context.Context, jobID string, rows []model.CandidateRanking, status model.JobRankingStatus) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	replacement := make([]model.CandidateRanking, len(rows))
	copy(replacement, rows)
	sort.Slice(replacement, func(i, j int) bool { return replacement[i].Rank < replacement[j].Rank })

	s.rankings[jobID] = replacement
	s.statuses[jobID] = status
	s.updateGaugesLocked()

	metrics.RecordReplaceLatency(float64(time.Since(start).Milliseconds()))
	return nil
}

// TopCandidates returns up to limit rows ordered by rank.
func (s *MemStore) TopCandidates(_ context.Context, jobID string, limit int) ([]model.CandidateRanking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.rankings[jobID]
	if limit > len(rows) {
		limit = len(rows)
	}
	out := make([]model.CandidateRanking, limit)
	copy(out, rows[:limit])
	return out, nil
}

// Status returns the job's status record.
func (s *MemStore) Status(_ context.Context, jobID string) (model.JobRankingStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.statuses[jobID]
	return st, ok, nil
}

// TryBeginCalculation transitions the job to CALCULATING.
func (s *MemStore) TryBeginCalculation(_ context.Context, jobID, trigger string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	st, ok := s.statuses[jobID]
	if ok && st.Status == model.StateCalculating && !force {
		return ErrCalculationInProgress
	}
	if !ok {
		st = model.JobRankingStatus{JobID: jobID}
	}
	st.Status = model.StateCalculating
	st.TriggerEvent = trigger
	st.ErrorMessage = ""
	s.statuses[jobID] = st
	s.updateGaugesLocked()
	return nil
}

// SetStatus overwrites the job's status record.
func (s *MemStore) SetStatus(_ context.Context, status model.JobRankingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.statuses[status.JobID] = status
	s.updateGaugesLocked()
	return nil
}

// MarkStale flags jobs stale; jobs mid-calculation keep their status since
// the in-flight run will overwrite it anyway.
func (s *MemStore) MarkStale(_ context.Context, jobIDs []string, trigger string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	touched := 0
	for _, jobID := range jobIDs {
		st, ok := s.statuses[jobID]
		if !ok {
			st = model.JobRankingStatus{JobID: jobID, Status: model.StateStale, TriggerEvent: trigger}
			s.statuses[jobID] = st
			touched++
			continue
		}
		if st.Status != model.StateCalculating {
			st.Status = model.StateStale
			st.TriggerEvent = trigger
			s.statuses[jobID] = st
		}
		rows := s.rankings[jobID]
		for i := range rows {
			rows[i].IsStale = true
		}
		touched++
	}
	s.updateGaugesLocked()
	return touched, nil
}

// ListStaleJobs returns up to limit job ids currently STALE, ordered by id
// for determinism.
func (s *MemStore) ListStaleJobs(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []string
	for jobID, st := range s.statuses {
		if st.Status == model.StateStale {
			stale = append(stale, jobID)
		}
	}
	sort.Strings(stale)
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// CountStale returns the number of jobs currently STALE.
func (s *MemStore) CountStale(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, st := range s.statuses {
		if st.Status == model.StateStale {
			count++
		}
	}
	return count, nil
}

// SaveAssessment upserts a submission keyed by (job, applicant).
func (s *MemStore) SaveAssessment(_ context.Context, a model.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	byJob, ok := s.assessments[a.JobID]
	if !ok {
		byJob = make(map[string]model.Assessment)
		s.assessments[a.JobID] = byJob
	}
	byJob[a.ApplicantID] = a

	jobSet, ok := s.byApplicant[a.ApplicantID]
	if !ok {
		jobSet = make(map[string]struct{})
		s.byApplicant[a.ApplicantID] = jobSet
	}
	jobSet[a.JobID] = struct{}{}
	return nil
}

// ListAssessments returns all submissions against a job.
func (s *MemStore) ListAssessments(_ context.Context, jobID string) ([]model.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byJob := s.assessments[jobID]
	out := make([]model.Assessment, 0, len(byJob))
	for _, a := range byJob {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApplicantID < out[j].ApplicantID })
	return out, nil
}

// JobsForApplicant returns the jobs an applicant has submitted against.
func (s *MemStore) JobsForApplicant(_ context.Context, applicantID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobSet := s.byApplicant[applicantID]
	out := make([]string, 0, len(jobSet))
	for jobID := range jobSet {
		out = append(out, jobID)
	}
	sort.Strings(out)
	return out, nil
}

// SaveConfig upserts a config, bumping its version.
func (s *MemStore) SaveConfig(_ context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ScoringConfig{}, ErrClosed
	}

	if prev, ok := s.configs[cfg.ID]; ok {
		cfg.Version = prev.Version + 1
		// Drop a stale override mapping if the config moved between jobs.
		if prev.JobID != "" && prev.JobID != cfg.JobID {
			delete(s.overrides, prev.JobID)
		}
	} else {
		cfg.Version = 1
	}

	s.configs[cfg.ID] = cfg
	if cfg.JobID != "" {
		s.overrides[cfg.JobID] = cfg.ID
	}
	// Only one global default at a time.
	if cfg.IsDefault {
		if s.defaultCfg != "" && s.defaultCfg != cfg.ID {
			prev := s.configs[s.defaultCfg]
			prev.IsDefault = false
			s.configs[s.defaultCfg] = prev
		}
		s.defaultCfg = cfg.ID
	} else if s.defaultCfg == cfg.ID {
		s.defaultCfg = ""
	}
	return cfg, nil
}

// JobConfig returns a job's override config, or nil.
func (s *MemStore) JobConfig(_ context.Context, jobID string) (*model.ScoringConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.overrides[jobID]
	if !ok {
		return nil, nil
	}
	cfg := s.configs[id]
	return &cfg, nil
}

// DefaultConfig returns the global default config, or nil.
func (s *MemStore) DefaultConfig(_ context.Context) (*model.ScoringConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.defaultCfg == "" {
		return nil, nil
	}
	cfg := s.configs[s.defaultCfg]
	return &cfg, nil
}

// JobsUsingConfig returns every job whose effective config is the given one.
func (s *MemStore) JobsUsingConfig(_ context.Context, configID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[configID]
	if !ok {
		return nil, ErrNotFound
	}

	if !cfg.IsDefault {
		if cfg.JobID == "" {
			return nil, nil
		}
		return []string{cfg.JobID}, nil
	}

	// The default governs every job without its own override.
	var out []string
	for jobID := range s.jobs {
		if _, overridden := s.overrides[jobID]; !overridden {
			out = append(out, jobID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SaveJob upserts a job record.
func (s *MemStore) SaveJob(_ context.Context, j model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.jobs[j.ID] = j
	return nil
}

// JobExists reports whether the job id is known.
func (s *MemStore) JobExists(_ context.Context, jobID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.jobs[jobID]
	return ok, nil
}

// CountJobs returns the number of known jobs.
func (s *MemStore) CountJobs(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs), nil
}

// Close marks the store closed; reads keep working for draining handlers.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// updateGaugesLocked refreshes store gauges; callers hold the write lock.
func (s *MemStore) updateGaugesLocked() {
	metrics.UpdateJobsTracked(len(s.statuses))
	stale := 0
	for _, st := range s.statuses {
		if st.Status == model.StateStale {
			stale++
		}
	}
	metrics.UpdateStaleJobs(stale)
}
