// Package circuitbreaker stops calls to a failing dependency until it
// has had time to recover, so one degraded service (the student
// directory) cannot drag the whole import pipeline down with it.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of the breaker.
type State int

const (
	// StateClosed lets calls through and counts failures.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a limited number of trial calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config for a CircuitBreaker. Zero values get defaults from New.
type Config struct {
	// Name identifies the protected dependency in state-change callbacks.
	Name string

	// FailureThreshold is how many consecutive failures open the circuit.
	FailureThreshold int

	// SuccessThreshold is how many trial successes close it again.
	SuccessThreshold int

	// Cooldown is how long the circuit stays open before allowing trials.
	Cooldown time.Duration

	// MaxTrials caps concurrent calls in the half-open state.
	MaxTrials int

	// OnStateChange, when set, is called outside the breaker's lock on
	// every transition.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker tracks consecutive failures of one dependency.
type CircuitBreaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	trials    int
	openedAt  time.Time
}

// New builds a CircuitBreaker, defaulting FailureThreshold to 5,
// SuccessThreshold to 2, Cooldown to 30s and MaxTrials to 1.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.MaxTrials < 1 {
		cfg.MaxTrials = 1
	}
	return &CircuitBreaker{cfg: cfg}
}

// DirectoryBreaker protects student directory lookups. It trips fast
// (3 failures) and recovers on a single successful trial, because a
// roster import would otherwise burn a retry cycle per row against a
// directory that is already known to be down.
func DirectoryBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Config{
		Name:             "student-directory",
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
		MaxTrials:        1,
		OnStateChange:    onStateChange,
	})
}

// State returns the current state, moving an expired open circuit to
// half-open first.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	notify := cb.refresh()
	s := cb.state
	cb.mu.Unlock()
	notify()
	return s
}

// Execute runs op under the breaker. It returns ErrCircuitOpen without
// calling op while the circuit is open, and otherwise op's error.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := op(ctx)
	cb.record(err == nil)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	notify := cb.refresh()

	var err error
	switch cb.state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.trials >= cb.cfg.MaxTrials {
			err = ErrCircuitOpen
		} else {
			cb.trials++
		}
	}
	cb.mu.Unlock()
	notify()
	return err
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	var notify func()
	switch {
	case cb.state == StateHalfOpen && ok:
		cb.trials--
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			notify = cb.transition(StateClosed)
		}
	case cb.state == StateHalfOpen:
		cb.trials--
		notify = cb.transition(StateOpen)
	case ok:
		cb.failures = 0
	default:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			notify = cb.transition(StateOpen)
		}
	}
	cb.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// refresh moves an open circuit whose cooldown has elapsed to
// half-open. Caller holds the lock; the returned func runs the
// OnStateChange callback and must be called after unlocking.
func (cb *CircuitBreaker) refresh() func() {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.cfg.Cooldown {
		if notify := cb.transition(StateHalfOpen); notify != nil {
			return notify
		}
	}
	return func() {}
}

func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.trials = 0
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
	if cb.cfg.OnStateChange == nil {
		return func() {}
	}
	name := cb.cfg.Name
	fn := cb.cfg.OnStateChange
	return func() { fn(name, from, to) }
}
