package service

import (
	"time"

	"github.com/openhire/ranker/internal/adapters/bus"
	"github.com/openhire/ranker/internal/adapters/repository"
	"github.com/openhire/ranker/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built store (tests, custom backends).
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithBus injects a pre-built event bus.
func WithBus(b bus.Bus) Option {
	return func(s *Service) {
		if b != nil {
			s.bus = b
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock injects the time source used for recency scoring and timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDatabasePath selects the sqlite store; empty keeps the in-memory one.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		s.databasePath = path
	}
}

// WithBusBuffer bounds each bus subscriber's buffer.
func WithBusBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.busBuffer = size
		}
	}
}

// WithBatchSizes sets the bulk batch sizes per priority.
func WithBatchSizes(high, normal int) Option {
	return func(s *Service) {
		if high > 0 {
			s.highBatchSize = high
		}
		if normal > 0 {
			s.normalBatchSize = normal
		}
	}
}

// WithBatchDelay sets the pause between normal-priority batches.
func WithBatchDelay(delay time.Duration) Option {
	return func(s *Service) {
		if delay >= 0 {
			s.batchDelay = delay
		}
	}
}

// WithSweepInterval paces the background stale sweeper; 0 disables it.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.sweepInterval = interval
		}
	}
}

// WithSweepLimit caps jobs drained per sweep.
func WithSweepLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.sweepLimit = limit
		}
	}
}

// WithMaxBulkJobs caps job ids per bulk request.
func WithMaxBulkJobs(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxBulkJobs = limit
		}
	}
}

// WithTopCandidateLimits sets the default and maximum read limits.
func WithTopCandidateLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultTopLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxTopLimit = maxLimit
		}
	}
}

// WithDedupeSize bounds the seen-event cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}
