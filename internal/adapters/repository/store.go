// Package repository defines the persistence contracts for the ranking
// engine and provides an in-memory store and a sqlite-backed store.
package repository

import (
	"context"

	"github.com/openhire/ranker/internal/domain/model"
)

// RankingStore holds per-job ranking rows and the per-job status record.
type RankingStore interface {
	// ReplaceRankings swaps a job's ranking rows and status atomically.
	// Old rows are never visible between deletion and insertion.
	ReplaceRankings(ctx context.Context, jobID string, rows []model.CandidateRanking, status model.JobRankingStatus) error

	// TopCandidates returns up to limit rows ordered by rank.
	TopCandidates(ctx context.Context, jobID string, limit int) ([]model.CandidateRanking, error)

	// Status returns the job's status record; found is false when no
	// calculation has ever run for the job.
	Status(ctx context.Context, jobID string) (status model.JobRankingStatus, found bool, err error)

	// TryBeginCalculation transitions the job to CALCULATING. Unless force
	// is set it fails with ErrCalculationInProgress when the job is already
	// CALCULATING.
	TryBeginCalculation(ctx context.Context, jobID, trigger string, force bool) error

	// SetStatus overwrites the job's status record (ERROR transitions).
	SetStatus(ctx context.Context, status model.JobRankingStatus) error

	// MarkStale flags the given jobs' status and rows as stale. Jobs with
	// no status row get a synthesized STALE record. Returns the number of
	// jobs touched.
	MarkStale(ctx context.Context, jobIDs []string, trigger string) (int, error)

	// ListStaleJobs returns up to limit job ids currently STALE.
	ListStaleJobs(ctx context.Context, limit int) ([]string, error)

	// CountStale returns the number of jobs currently STALE.
	CountStale(ctx context.Context) (int, error)
}

// AssessmentRepository stores candidate submissions.
type AssessmentRepository interface {
	// SaveAssessment upserts a submission keyed by (job, applicant).
	SaveAssessment(ctx context.Context, a model.Assessment) error

	// ListAssessments returns all submissions against a job.
	ListAssessments(ctx context.Context, jobID string) ([]model.Assessment, error)

	// JobsForApplicant returns the jobs an applicant has submitted against.
	JobsForApplicant(ctx context.Context, applicantID string) ([]string, error)
}

// ScoringConfigRepository stores scoring configurations.
type ScoringConfigRepository interface {
	// SaveConfig upserts a config, bumping its version. The stored config
	// is returned.
	SaveConfig(ctx context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error)

	// JobConfig returns a job's override config, or nil when it has none.
	JobConfig(ctx context.Context, jobID string) (*model.ScoringConfig, error)

	// DefaultConfig returns the global default config, or nil when none
	// has been created yet.
	DefaultConfig(ctx context.Context) (*model.ScoringConfig, error)

	// JobsUsingConfig returns every job whose effective config is the
	// given one: the override's job, or all jobs without an override when
	// the config is the global default.
	JobsUsingConfig(ctx context.Context, configID string) ([]string, error)
}

// JobRepository stores the minimal job records the engine needs.
type JobRepository interface {
	SaveJob(ctx context.Context, j model.Job) error
	JobExists(ctx context.Context, jobID string) (bool, error)
	CountJobs(ctx context.Context) (int, error)
}

// Store bundles everything the service persists.
type Store interface {
	RankingStore
	AssessmentRepository
	ScoringConfigRepository
	JobRepository

	Close() error
}
