// Package bus provides the in-process domain event bus.
//
// Delivery is fire-and-forget: a publish never waits on subscriber
// completion, a slow subscriber never blocks the publisher or its peers, and
// per-subscriber publish order is preserved. Handler failures are isolated
// and logged; nothing is persisted or replayed.
package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/openhire/ranker/internal/domain/model"
	"github.com/openhire/ranker/pkg/logger"
	"github.com/openhire/ranker/pkg/metrics"
)

const defaultBufferSize = 1024

// Handler consumes one event. A returned error is logged and counted, never
// propagated to the publisher.
type Handler func(ctx context.Context, e model.Event) error

// Bus publishes domain events to independent subscribers.
type Bus interface {
	// Publish delivers e to every subscriber of e.Type without blocking.
	// A subscriber whose buffer is full misses the event.
	Publish(ctx context.Context, e model.Event)

	// Subscribe registers a named handler for the given event types and
	// starts its delivery goroutine.
	Subscribe(name string, types []model.EventType, h Handler)

	// Close stops delivery and waits for in-flight handlers to drain.
	Close() error
}

type subscriber struct {
	name    string
	types   map[model.EventType]struct{}
	events  chan model.Event
	handler Handler
	done    chan struct{}
}

func (s *subscriber) wants(t model.EventType) bool {
	_, ok := s.types[t]
	return ok
}

// InMemoryBus implements Bus over buffered channels, one per subscriber.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	bufferSize  int
	closed      bool
	logger      logger.Logger
}

// New creates an in-memory bus with configuration options.
func New(opts ...Option) *InMemoryBus {
	b := &InMemoryBus{
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logger.Get().Named("bus")
	}

	return b
}

// Subscribe registers a handler and starts its delivery goroutine.
func (b *InMemoryBus) Subscribe(name string, types []model.EventType, h Handler) {
	typeSet := make(map[model.EventType]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}

	sub := &subscriber{
		name:    name,
		types:   typeSet,
		events:  make(chan model.Event, b.bufferSize),
		handler: h,
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	go b.deliver(sub)
}

// deliver drains one subscriber's channel in publish order.
func (b *InMemoryBus) deliver(sub *subscriber) {
	defer close(sub.done)
	ctx := context.Background()
	for e := range sub.events {
		b.invoke(ctx, sub, e)
	}
}

// invoke runs the handler with panic isolation.
func (b *InMemoryBus) invoke(ctx context.Context, sub *subscriber, e model.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSubscriberError(sub.name)
			b.logger.Error(ctx, "subscriber panicked",
				logger.String("subscriber", sub.name),
				logger.String("eventType", string(e.Type)),
				logger.Any("panic", r),
			)
		}
	}()

	if err := sub.handler(ctx, e); err != nil {
		metrics.RecordSubscriberError(sub.name)
		b.logger.Error(ctx, "subscriber failed",
			logger.String("subscriber", sub.name),
			logger.String("eventType", string(e.Type)),
			logger.String("eventID", e.EventID),
			logger.Error(err),
		)
	}
}

// Publish delivers e to every interested subscriber without blocking.
func (b *InMemoryBus) Publish(ctx context.Context, e model.Event) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	metrics.RecordEventPublished(string(e.Type))
	for _, sub := range b.subscribers {
		if !sub.wants(e.Type) {
			continue
		}
		select {
		case sub.events <- e:
		default:
			metrics.RecordEventDropped(string(e.Type))
			b.logger.Warn(ctx, "subscriber buffer full, event dropped",
				logger.String("subscriber", sub.name),
				logger.String("eventType", string(e.Type)),
				logger.String("eventID", e.EventID),
			)
		}
	}
}

// Close stops delivery and waits for subscriber goroutines to finish.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subscribers
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.events)
	}
	for _, sub := range subs {
		<-sub.done
	}
	return nil
}
