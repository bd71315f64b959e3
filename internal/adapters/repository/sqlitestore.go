package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/openhire/ranker/internal/domain/model"
	"github.com/openhire/ranker/pkg/metrics"
)

// SQLiteStore implements Store on a sqlite database. The ranking replace and
// the CALCULATING transition run inside transactions so readers never see a
// half-swapped job.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS scoring_configs (
	id                        TEXT PRIMARY KEY,
	negative_marking_fraction REAL    NOT NULL,
	recency_window_days       INTEGER NOT NULL,
	recency_boost_percent     REAL    NOT NULL,
	is_default                INTEGER NOT NULL,
	job_id                    TEXT    NOT NULL DEFAULT '',
	version                   INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_configs_job ON scoring_configs(job_id) WHERE job_id != '';

CREATE TABLE IF NOT EXISTS assessments (
	id           TEXT NOT NULL,
	job_id       TEXT NOT NULL,
	applicant_id TEXT NOT NULL,
	answers      TEXT NOT NULL,
	submitted_at TIMESTAMP NOT NULL,
	PRIMARY KEY (job_id, applicant_id)
);
CREATE INDEX IF NOT EXISTS idx_assessments_applicant ON assessments(applicant_id);

CREATE TABLE IF NOT EXISTS candidate_rankings (
	id                     TEXT PRIMARY KEY,
	job_id                 TEXT    NOT NULL,
	applicant_id           TEXT    NOT NULL,
	assessment_id          TEXT    NOT NULL,
	rank                   INTEGER NOT NULL,
	score                  REAL    NOT NULL,
	max_possible_score     REAL    NOT NULL,
	percentage             REAL    NOT NULL,
	correct_answers        INTEGER NOT NULL,
	incorrect_answers      INTEGER NOT NULL,
	recency_bonus          REAL    NOT NULL,
	scoring_config_version INTEGER NOT NULL,
	calculated_at          TIMESTAMP NOT NULL,
	is_stale               INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rankings_job ON candidate_rankings(job_id, rank);

CREATE TABLE IF NOT EXISTS job_ranking_statuses (
	job_id                  TEXT PRIMARY KEY,
	status                  TEXT    NOT NULL,
	total_candidates        INTEGER NOT NULL,
	last_calculated_at      TIMESTAMP,
	calculation_duration_ms INTEGER NOT NULL,
	scoring_config_version  INTEGER NOT NULL,
	trigger_event           TEXT    NOT NULL DEFAULT '',
	error_message           TEXT    NOT NULL DEFAULT ''
);
`

// NewSQLiteStore opens (or creates) the database at path and bootstraps the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// inTx runs fn inside a transaction with rollback on error.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

// ReplaceRankings swaps a job's rows and status in one transaction.
func (s *SQLiteStore) ReplaceRankings(ctx context.Context, jobID string, rows []model.CandidateRanking, status model.JobRankingStatus) error {
	start := time.Now()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM candidate_rankings WHERE job_id = ?`, jobID); err != nil {
			return fmt.Errorf("delete old rankings: %w", err)
		}
		for i := range rows {
			r := &rows[i]
			_, err := tx.ExecContext(ctx, `
				INSERT INTO candidate_rankings (
					id, job_id, applicant_id, assessment_id, rank, score,
					max_possible_score, percentage, correct_answers,
					incorrect_answers, recency_bonus, scoring_config_version,
					calculated_at, is_stale
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, r.JobID, r.ApplicantID, r.AssessmentID, r.Rank, r.Score,
				r.MaxPossibleScore, r.Percentage, r.CorrectAnswers,
				r.IncorrectAnswers, r.RecencyBonus, r.ScoringConfigVersion,
				r.CalculatedAt, boolToInt(r.IsStale),
			)
			if err != nil {
				return fmt.Errorf("insert ranking row: %w", err)
			}
		}
		return upsertStatus(ctx, tx, status)
	})
	if err != nil {
		return err
	}

	metrics.RecordReplaceLatency(float64(time.Since(start).Milliseconds()))
	return nil
}

func upsertStatus(ctx context.Context, tx *sql.Tx, st model.JobRankingStatus) error {
	var calculatedAt interface{}
	if !st.LastCalculatedAt.IsZero() {
		calculatedAt = st.LastCalculatedAt
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO job_ranking_statuses (
			job_id, status, total_candidates, last_calculated_at,
			calculation_duration_ms, scoring_config_version, trigger_event,
			error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			total_candidates = excluded.total_candidates,
			last_calculated_at = excluded.last_calculated_at,
			calculation_duration_ms = excluded.calculation_duration_ms,
			scoring_config_version = excluded.scoring_config_version,
			trigger_event = excluded.trigger_event,
			error_message = excluded.error_message`,
		st.JobID, string(st.Status), st.TotalCandidates, calculatedAt,
		st.CalculationDuration.Milliseconds(), st.ScoringConfigVersion,
		st.TriggerEvent, st.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}
	return nil
}

// TopCandidates returns up to limit rows ordered by rank.
func (s *SQLiteStore) TopCandidates(ctx context.Context, jobID string, limit int) ([]model.CandidateRanking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, applicant_id, assessment_id, rank, score,
		       max_possible_score, percentage, correct_answers,
		       incorrect_answers, recency_bonus, scoring_config_version,
		       calculated_at, is_stale
		FROM candidate_rankings
		WHERE job_id = ?
		ORDER BY rank ASC
		LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("query rankings: %w", err)
	}
	defer rows.Close()

	out := make([]model.CandidateRanking, 0, limit)
	for rows.Next() {
		var r model.CandidateRanking
		var stale int
		if err := rows.Scan(
			&r.ID, &r.JobID, &r.ApplicantID, &r.AssessmentID, &r.Rank,
			&r.Score, &r.MaxPossibleScore, &r.Percentage, &r.CorrectAnswers,
			&r.IncorrectAnswers, &r.RecencyBonus, &r.ScoringConfigVersion,
			&r.CalculatedAt, &stale,
		); err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		r.IsStale = stale != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rankings: %w", err)
	}
	return out, nil
}

func scanStatus(row *sql.Row) (model.JobRankingStatus, bool, error) {
	var (
		st           model.JobRankingStatus
		status       string
		calculatedAt sql.NullTime
		durationMS   int64
	)
	err := row.Scan(&st.JobID, &status, &st.TotalCandidates, &calculatedAt,
		&durationMS, &st.ScoringConfigVersion, &st.TriggerEvent, &st.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobRankingStatus{}, false, nil
	}
	if err != nil {
		return model.JobRankingStatus{}, false, fmt.Errorf("scan status: %w", err)
	}
	st.Status = model.RankingState(status)
	if calculatedAt.Valid {
		st.LastCalculatedAt = calculatedAt.Time
	}
	st.CalculationDuration = time.Duration(durationMS) * time.Millisecond
	return st, true, nil
}

const statusColumns = `job_id, status, total_candidates, last_calculated_at,
	calculation_duration_ms, scoring_config_version, trigger_event, error_message`

// Status returns the job's status record.
func (s *SQLiteStore) Status(ctx context.Context, jobID string) (model.JobRankingStatus, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM job_ranking_statuses WHERE job_id = ?`, jobID)
	return scanStatus(row)
}

// TryBeginCalculation transitions the job to CALCULATING inside a
// transaction so concurrent unforced starts cannot both pass the guard.
func (s *SQLiteStore) TryBeginCalculation(ctx context.Context, jobID, trigger string, force bool) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM job_ranking_statuses WHERE job_id = ?`, jobID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// First calculation for this job.
		case err != nil:
			return fmt.Errorf("read status: %w", err)
		case current == string(model.StateCalculating) && !force:
			return ErrCalculationInProgress
		}
		return upsertCalculating(ctx, tx, jobID, trigger)
	})
}

func upsertCalculating(ctx context.Context, tx *sql.Tx, jobID, trigger string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO job_ranking_statuses (
			job_id, status, total_candidates, calculation_duration_ms,
			scoring_config_version, trigger_event, error_message
		) VALUES (?, ?, 0, 0, 0, ?, '')
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			trigger_event = excluded.trigger_event,
			error_message = ''`,
		jobID, string(model.StateCalculating), trigger)
	if err != nil {
		return fmt.Errorf("mark calculating: %w", err)
	}
	return nil
}

// SetStatus overwrites the job's status record.
func (s *SQLiteStore) SetStatus(ctx context.Context, status model.JobRankingStatus) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertStatus(ctx, tx, status)
	})
}

// MarkStale flags jobs stale, skipping the status of jobs mid-calculation.
func (s *SQLiteStore) MarkStale(ctx context.Context, jobIDs []string, trigger string) (int, error) {
	touched := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, jobID := range jobIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO job_ranking_statuses (
					job_id, status, total_candidates, calculation_duration_ms,
					scoring_config_version, trigger_event, error_message
				) VALUES (?, ?, 0, 0, 0, ?, '')
				ON CONFLICT(job_id) DO UPDATE SET
					status = excluded.status,
					trigger_event = excluded.trigger_event
				WHERE job_ranking_statuses.status != ?`,
				jobID, string(model.StateStale), trigger, string(model.StateCalculating))
			if err != nil {
				return fmt.Errorf("mark stale: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE candidate_rankings SET is_stale = 1 WHERE job_id = ?`, jobID); err != nil {
				return fmt.Errorf("flag stale rows: %w", err)
			}
			touched++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return touched, nil
}

// ListStaleJobs returns up to limit job ids currently STALE.
func (s *SQLiteStore) ListStaleJobs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id FROM job_ranking_statuses
		WHERE status = ? ORDER BY job_id ASC LIMIT ?`,
		string(model.StateStale), limit)
	if err != nil {
		return nil, fmt.Errorf("query stale jobs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return nil, fmt.Errorf("scan stale job: %w", err)
		}
		out = append(out, jobID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale jobs: %w", err)
	}
	return out, nil
}

// CountStale returns the number of jobs currently STALE.
func (s *SQLiteStore) CountStale(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM job_ranking_statuses WHERE status = ?`,
		string(model.StateStale)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stale jobs: %w", err)
	}
	return count, nil
}

// SaveAssessment upserts a submission keyed by (job, applicant).
func (s *SQLiteStore) SaveAssessment(ctx context.Context, a model.Assessment) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, job_id, applicant_id, answers, submitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job_id, applicant_id) DO UPDATE SET
			id = excluded.id,
			answers = excluded.answers,
			submitted_at = excluded.submitted_at`,
		a.ID, a.JobID, a.ApplicantID, string(answers), a.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

// ListAssessments returns all submissions against a job.
func (s *SQLiteStore) ListAssessments(ctx context.Context, jobID string) ([]model.Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, applicant_id, answers, submitted_at
		FROM assessments WHERE job_id = ? ORDER BY applicant_id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		var (
			a       model.Assessment
			answers string
		)
		if err := rows.Scan(&a.ID, &a.JobID, &a.ApplicantID, &answers, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

// JobsForApplicant returns the jobs an applicant has submitted against.
func (s *SQLiteStore) JobsForApplicant(ctx context.Context, applicantID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT job_id FROM assessments
		WHERE applicant_id = ? ORDER BY job_id ASC`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("query applicant jobs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return nil, fmt.Errorf("scan applicant job: %w", err)
		}
		out = append(out, jobID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applicant jobs: %w", err)
	}
	return out, nil
}

// SaveConfig upserts a config, bumping its version.
func (s *SQLiteStore) SaveConfig(ctx context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			prevVersion int
			prevJobID   string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT version, job_id FROM scoring_configs WHERE id = ?`, cfg.ID).
			Scan(&prevVersion, &prevJobID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			cfg.Version = 1
		case err != nil:
			return fmt.Errorf("read config: %w", err)
		default:
			cfg.Version = prevVersion + 1
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO scoring_configs (
				id, negative_marking_fraction, recency_window_days,
				recency_boost_percent, is_default, job_id, version
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				negative_marking_fraction = excluded.negative_marking_fraction,
				recency_window_days = excluded.recency_window_days,
				recency_boost_percent = excluded.recency_boost_percent,
				is_default = excluded.is_default,
				job_id = excluded.job_id,
				version = excluded.version`,
			cfg.ID, cfg.NegativeMarkingFraction, cfg.RecencyWindowDays,
			cfg.RecencyBoostPercent, boolToInt(cfg.IsDefault), cfg.JobID, cfg.Version)
		if err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		// Only one global default at a time.
		if cfg.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE scoring_configs SET is_default = 0 WHERE id != ?`, cfg.ID); err != nil {
				return fmt.Errorf("clear previous default: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.ScoringConfig{}, err
	}
	return cfg, nil
}

const configColumns = `id, negative_marking_fraction, recency_window_days,
	recency_boost_percent, is_default, job_id, version`

func scanConfig(row *sql.Row) (*model.ScoringConfig, error) {
	var (
		cfg       model.ScoringConfig
		isDefault int
	)
	err := row.Scan(&cfg.ID, &cfg.NegativeMarkingFraction, &cfg.RecencyWindowDays,
		&cfg.RecencyBoostPercent, &isDefault, &cfg.JobID, &cfg.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}
	cfg.IsDefault = isDefault != 0
	return &cfg, nil
}

// JobConfig returns a job's override config, or nil.
func (s *SQLiteStore) JobConfig(ctx context.Context, jobID string) (*model.ScoringConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM scoring_configs WHERE job_id = ?`, jobID)
	return scanConfig(row)
}

// DefaultConfig returns the global default config, or nil.
func (s *SQLiteStore) DefaultConfig(ctx context.Context) (*model.ScoringConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM scoring_configs WHERE is_default = 1`)
	return scanConfig(row)
}

// JobsUsingConfig returns every job whose effective config is the given one.
func (s *SQLiteStore) JobsUsingConfig(ctx context.Context, configID string) ([]string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM scoring_configs WHERE id = ?`, configID)
	cfg, err := scanConfig(row)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotFound
	}

	if !cfg.IsDefault {
		if cfg.JobID == "" {
			return nil, nil
		}
		return []string{cfg.JobID}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT j.id FROM jobs j
		LEFT JOIN scoring_configs c ON c.job_id = j.id
		WHERE c.id IS NULL
		ORDER BY j.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query default-governed jobs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, jobID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// SaveJob upserts a job record.
func (s *SQLiteStore) SaveJob(ctx context.Context, j model.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, title) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title`, j.ID, j.Title)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// JobExists reports whether the job id is known.
func (s *SQLiteStore) JobExists(ctx context.Context, jobID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, jobID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check job: %w", err)
	}
	return true, nil
}

// CountJobs returns the number of known jobs.
func (s *SQLiteStore) CountJobs(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
