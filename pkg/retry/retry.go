// Package retry provides bounded retries with exponential backoff and
// jitter for calls to flaky dependencies.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config defines a retry policy.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt. Each following
	// wait doubles until it reaches MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter adds up to 25% of random slack to every wait so that
	// concurrent callers do not hammer a recovering service in lockstep.
	Jitter bool
}

// Retrier runs operations under a retry policy. Every error is treated
// as transient unless wrapped with Permanent or caused by the context.
type Retrier struct {
	cfg Config
}

// New builds a Retrier, filling zero config values with defaults:
// 3 attempts, 100ms base delay, 5s ceiling.
func New(cfg Config) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	return &Retrier{cfg: cfg}
}

// DirectoryRetrier is tuned for student directory lookups: short waits
// so a roster import does not stall on a single slow record.
func DirectoryRetrier() *Retrier {
	return New(Config{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Jitter:      true,
	})
}

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) error

// Do runs the operation, retrying on error until the attempts are
// spent. It returns nil on the first success, the context error if the
// context ends, and otherwise the last error the operation produced.
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	var last error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = op(ctx)
		if last == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(last, &perm) {
			return perm.err
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(r.delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return last
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := r.cfg.BaseDelay << (attempt - 1)
	if d > r.cfg.MaxDelay || d <= 0 {
		d = r.cfg.MaxDelay
	}
	if r.cfg.Jitter {
		d += time.Duration(rand.Int63n(int64(d)/4 + 1))
	}
	return d
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as final: Do returns it immediately instead
// of spending the remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether the error was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}
