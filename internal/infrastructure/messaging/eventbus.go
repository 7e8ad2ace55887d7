// Package messaging carries domain events from command handlers to the
// notification and cache-invalidation services inside a single process.
package messaging

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ErrBusClosed is returned for publish or subscribe calls after Close.
var ErrBusClosed = errors.New("event bus is closed")

// InMemoryEventBusConfig configures the bus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on a bounded pool of goroutines instead of
	// inline on the publishing goroutine. Tests subscribe synchronously.
	AsyncMode bool

	// Workers bounds concurrent handler executions in async mode.
	Workers int

	Logger *slog.Logger
}

// DefaultInMemoryEventBusConfig returns the production configuration.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{AsyncMode: true, Workers: 10}
}

// InMemoryEventBus fans events out to subscribed handlers. A handler error
// never fails the publish: command handlers publish after the aggregate is
// already persisted, so listeners are best-effort.
type InMemoryEventBus struct {
	mu      sync.RWMutex
	byType  map[shared.EventType][]shared.EventHandler
	global  []shared.EventHandler
	closed  bool
	async   bool
	sem     chan struct{}
	done    chan struct{}
	pending sync.WaitGroup
	log     *slog.Logger
}

// NewInMemoryEventBus creates the bus.
func NewInMemoryEventBus(cfg InMemoryEventBusConfig) *InMemoryEventBus {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	return &InMemoryEventBus{
		byType: make(map[shared.EventType][]shared.EventHandler),
		async:  cfg.AsyncMode,
		sem:    make(chan struct{}, cfg.Workers),
		done:   make(chan struct{}),
		log:    cfg.Logger,
	}
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.byType[eventType] = append(b.byType[eventType], handler)
	return nil
}

// SubscribeAll registers a handler that receives every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.global = append(b.global, handler)
	return nil
}

// Publish delivers the event to every matching handler.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.byType[event.EventType()])+len(b.global))
	handlers = append(handlers, b.byType[event.EventType()]...)
	handlers = append(handlers, b.global...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if b.async {
			b.spawn(event, h)
			continue
		}
		if err := h(event); err != nil {
			b.log.Error("event handler failed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err)
		}
	}
	return nil
}

func (b *InMemoryEventBus) spawn(event shared.Event, h shared.EventHandler) {
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		select {
		case b.sem <- struct{}{}:
			defer func() { <-b.sem }()
		case <-b.done:
			return
		}
		if err := h(event); err != nil {
			b.log.Error("event handler failed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err)
		}
	}()
}

// Close stops accepting events and waits for in-flight handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.pending.Wait()
	return nil
}
