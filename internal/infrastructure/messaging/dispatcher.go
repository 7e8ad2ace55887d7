package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// Dispatcher sits between the event bus and the application services.
// Sync handlers (cache invalidation) run inline on the publishing
// goroutine so their effects are visible before the next read. Async
// handlers (notifications) run in the background with bounded retries;
// events that exhaust their retries are kept in a failure log.
type Dispatcher struct {
	bus      shared.EventBus
	retry    RetryPolicy
	timeout  time.Duration
	failures *FailureLog
	log      *slog.Logger

	mu       sync.RWMutex
	handlers map[shared.EventType][]registration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type registration struct {
	name    string
	handler shared.EventHandler
	async   bool
}

// RetryPolicy bounds retries of async handlers.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	EventBus shared.EventBus
	Retry    RetryPolicy

	// HandlerTimeout bounds one handler attempt.
	HandlerTimeout time.Duration

	// FailureLogSize bounds the failure log. Zero keeps the default.
	FailureLogSize int

	Logger *slog.Logger
}

// DefaultDispatcherConfig returns the production configuration.
func DefaultDispatcherConfig(bus shared.EventBus) DispatcherConfig {
	return DispatcherConfig{
		EventBus: bus,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    5 * time.Second,
		},
		HandlerTimeout: 30 * time.Second,
		FailureLogSize: 1000,
	}
}

// NewDispatcher creates a dispatcher. Call Start to attach it to the bus.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 1
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		bus:      cfg.EventBus,
		retry:    cfg.Retry,
		timeout:  cfg.HandlerTimeout,
		failures: newFailureLog(cfg.FailureLogSize),
		log:      cfg.Logger,
		handlers: make(map[shared.EventType][]registration),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds an async handler for the event type.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	return d.register(eventType, name, handler, true)
}

// RegisterSync adds a handler that runs inline during dispatch.
func (d *Dispatcher) RegisterSync(eventType shared.EventType, name string, handler shared.EventHandler) error {
	return d.register(eventType, name, handler, false)
}

func (d *Dispatcher) register(eventType shared.EventType, name string, handler shared.EventHandler, async bool) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	if name == "" {
		return errors.New("handler name is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], registration{
		name:    name,
		handler: handler,
		async:   async,
	})
	return nil
}

// Start subscribes the dispatcher to the bus.
func (d *Dispatcher) Start() error {
	return d.bus.SubscribeAll(d.Dispatch)
}

// Dispatch routes one event. Sync handler errors are returned to the
// caller; async handlers only surface through the log and failure log.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	d.mu.RLock()
	regs := d.handlers[event.EventType()]
	d.mu.RUnlock()

	var errs []error
	for _, reg := range regs {
		if !reg.async {
			if err := d.attempt(reg, event); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", reg.name, err))
			}
			continue
		}
		d.wg.Add(1)
		go func(reg registration) {
			defer d.wg.Done()
			d.runWithRetry(reg, event)
		}(reg)
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) runWithRetry(reg registration, event shared.Event) {
	var lastErr error
	for attempt := 1; attempt <= d.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-d.ctx.Done():
				return
			case <-time.After(d.backoff(attempt)):
			}
		}

		lastErr = d.attempt(reg, event)
		if lastErr == nil {
			return
		}
		d.log.Warn("event handler attempt failed",
			"handler", reg.name,
			"event_type", event.EventType(),
			"attempt", attempt,
			"error", lastErr)
	}

	d.failures.add(FailedEvent{
		Event:    event,
		Handler:  reg.name,
		Err:      lastErr,
		Attempts: d.retry.MaxAttempts,
		FailedAt: time.Now().UTC(),
	})
	d.log.Error("event handler gave up",
		"handler", reg.name,
		"event_type", event.EventType(),
		"attempts", d.retry.MaxAttempts,
		"error", lastErr)
}

// attempt runs the handler once, bounded by the handler timeout.
func (d *Dispatcher) attempt(reg registration, event shared.Event) error {
	done := make(chan error, 1)
	go func() {
		done <- reg.handler(event)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(d.timeout):
		return fmt.Errorf("timed out after %v", d.timeout)
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
}

// backoff doubles the base delay per attempt, capped at MaxDelay.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.retry.BaseDelay << (attempt - 2)
	if d.retry.MaxDelay > 0 && delay > d.retry.MaxDelay {
		delay = d.retry.MaxDelay
	}
	return delay
}

// Stop cancels in-flight retries and waits for async handlers.
func (d *Dispatcher) Stop() error {
	d.cancel()
	d.wg.Wait()
	return nil
}

// Failures returns the failure log.
func (d *Dispatcher) Failures() *FailureLog {
	return d.failures
}

// FailedEvent records one event a handler could not process.
type FailedEvent struct {
	Event    shared.Event
	Handler  string
	Err      error
	Attempts int
	FailedAt time.Time
}

// FailureLog is a bounded ring of handler failures, kept for inspection
// and manual replay. Oldest entries are dropped first.
type FailureLog struct {
	mu      sync.Mutex
	entries []FailedEvent
	max     int
}

func newFailureLog(max int) *FailureLog {
	if max <= 0 {
		max = 1000
	}
	return &FailureLog{max: max}
}

func (l *FailureLog) add(e FailedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.max {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the logged failures, oldest first.
func (l *FailureLog) Entries() []FailedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]FailedEvent, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of logged failures.
func (l *FailureLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
