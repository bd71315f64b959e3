// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers file and env on top.
// - External errors are wrapped via this package's sentinels.
package config

import "time"

// Default pacing and limit constants.
const (
	defaultHighBatchSize    = 5
	defaultNormalBatchSize  = 2
	defaultBatchDelay       = time.Second
	defaultSweepInterval    = 30 * time.Second
	defaultSweepLimit       = 10
	defaultMaxBulkJobs      = 50
	defaultMaxTopCandidates = 100
	defaultTopCandidates    = 5
	defaultBusBuffer        = 1024
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabasePath selects the sqlite file backing the ranking store.
	// Empty selects the in-memory store.
	DatabasePath string `koanf:"database_path"`

	// BusBuffer bounds each subscriber's event buffer.
	BusBuffer int `koanf:"bus_buffer"`

	// HighBatchSize and NormalBatchSize size bulk processing batches.
	HighBatchSize   int `koanf:"high_batch_size"`
	NormalBatchSize int `koanf:"normal_batch_size"`

	// BatchDelayMS is the pause between normal-priority batches.
	BatchDelayMS int `koanf:"batch_delay_ms"`

	// SweepIntervalSec paces the background stale sweeper; 0 disables it.
	SweepIntervalSec int `koanf:"sweep_interval_sec"`

	// SweepLimit caps jobs drained per sweep.
	SweepLimit int `koanf:"sweep_limit"`

	// MaxBulkJobs caps job ids per bulk request.
	MaxBulkJobs int `koanf:"max_bulk_jobs"`

	// MaxTopCandidates and DefaultTopCandidates bound the read limit.
	MaxTopCandidates     int `koanf:"max_top_candidates"`
	DefaultTopCandidates int `koanf:"default_top_candidates"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9090",
		DatabasePath:         "",
		BusBuffer:            defaultBusBuffer,
		HighBatchSize:        defaultHighBatchSize,
		NormalBatchSize:      defaultNormalBatchSize,
		BatchDelayMS:         int(defaultBatchDelay / time.Millisecond),
		SweepIntervalSec:     int(defaultSweepInterval / time.Second),
		SweepLimit:           defaultSweepLimit,
		MaxBulkJobs:          defaultMaxBulkJobs,
		MaxTopCandidates:     defaultMaxTopCandidates,
		DefaultTopCandidates: defaultTopCandidates,
	}
}
