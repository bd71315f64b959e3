// Package dedupe tracks seen event ids so bus handlers stay idempotent when
// the same publish is delivered more than once.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records seen event ids for at-most-once handling.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. Returns true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so a failed handling attempt can be retried.
	Unrecord(ctx context.Context, id string)

	// Size returns the current number of tracked ids.
	Size() int64
}

// inMemoryDeduper keeps a bounded set of ids with FIFO eviction: once the
// cap is reached, the oldest recorded id is forgotten first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion order ring
	headIdx int
	maxSize int
}

// NewInMemoryDeduper creates an in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{}, d.maxSize)
	d.order = make([]string, 0, d.maxSize)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// evictOldest drops the oldest still-tracked id. Callers hold the lock.
func (d *inMemoryDeduper) evictOldest() {
	for d.headIdx < len(d.order) {
		candidate := d.order[d.headIdx]
		d.headIdx++
		if _, ok := d.seen[candidate]; ok {
			delete(d.seen, candidate)
			break
		}
	}
	// Compact the ring once the consumed prefix dominates.
	if d.headIdx > len(d.order)/2 {
		d.order = append(d.order[:0], d.order[d.headIdx:]...)
		d.headIdx = 0
	}
}
