// Package bus provides the in-process domain event bus.
package bus

import "github.com/openhire/ranker/pkg/logger"

// Option applies a configuration option to the InMemoryBus.
type Option func(*InMemoryBus)

// WithBufferSize bounds each subscriber's event buffer.
func WithBufferSize(size int) Option {
	return func(b *InMemoryBus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithLogger sets a custom logger for the bus.
func WithLogger(l logger.Logger) Option {
	return func(b *InMemoryBus) {
		if l != nil {
			b.logger = l
		}
	}
}
