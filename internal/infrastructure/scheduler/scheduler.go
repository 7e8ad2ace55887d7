// Package scheduler runs the worker's periodic jobs: cache warming and
// the daily placement digest. Schedules are evaluated in the campus
// timezone configured on the scheduler.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is a unit of periodic work.
type Job interface {
	// Name uniquely identifies the job within a scheduler.
	Name() string

	// Run executes the job. The context is cancelled on shutdown.
	Run(ctx context.Context) error

	// Description is shown in logs and job listings.
	Description() string
}

// Schedule decides when a job runs next. Next receives the current time
// already converted to the scheduler timezone.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

var (
	ErrNilJob        = errors.New("job cannot be nil")
	ErrNilSchedule   = errors.New("schedule cannot be nil")
	ErrDuplicateJob  = errors.New("job already registered")
	ErrAlreadyActive = errors.New("scheduler is already running")
	ErrNotActive     = errors.New("scheduler is not running")
)

// SchedulerConfig configures the scheduler.
type SchedulerConfig struct {
	Logger *slog.Logger

	// Timezone for schedule evaluation. Defaults to UTC.
	Timezone *time.Location
}

// Scheduler runs registered jobs on their schedules. One goroutine per
// due job; Stop waits for running jobs to finish.
type Scheduler struct {
	log *slog.Logger
	tz  *time.Location

	mu      sync.Mutex
	entries map[string]*entry
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type entry struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	lastRun  time.Time
	runs     int64
	failures int64
}

// NewScheduler creates a scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	return &Scheduler{
		log:     cfg.Logger,
		tz:      cfg.Timezone,
		entries: make(map[string]*entry),
	}
}

// Register adds a job. The first run happens at schedule.Next(now).
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	next := schedule.Next(time.Now().In(s.tz))
	s.entries[name] = &entry{job: job, schedule: schedule, nextRun: next}

	s.log.Info("job registered",
		"job", name,
		"description", job.Description(),
		"schedule", schedule.String(),
		"next_run", next.Format(time.RFC3339))
	return nil
}

// Start launches the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyActive
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Info("scheduler started", "jobs", len(s.entries), "timezone", s.tz.String())
	return nil
}

// Stop cancels the loop and waits for running jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

// fireDue starts every job whose next run time has passed and advances
// its schedule before the job runs, so a slow job cannot pile up.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now().In(s.tz)

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if !e.nextRun.IsZero() && now.After(e.nextRun) {
			e.lastRun = now
			e.nextRun = e.schedule.Next(now)
			e.runs++
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go s.run(ctx, e)
	}
}

func (s *Scheduler) run(ctx context.Context, e *entry) {
	defer s.wg.Done()

	name := e.job.Name()
	start := time.Now()
	s.log.Info("job started", "job", name)

	err := e.job.Run(ctx)
	elapsed := time.Since(start)

	if err != nil {
		s.mu.Lock()
		e.failures++
		s.mu.Unlock()
		s.log.Error("job failed", "job", name, "duration", elapsed.String(), "error", err)
		return
	}
	s.log.Info("job completed", "job", name, "duration", elapsed.String())
}

// JobInfo describes one registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	Runs        int64
	Failures    int64
}

// ListJobs returns a snapshot of all registered jobs.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for name, e := range s.entries {
		infos = append(infos, JobInfo{
			Name:        name,
			Description: e.job.Description(),
			Schedule:    e.schedule.String(),
			LastRun:     e.lastRun,
			NextRun:     e.nextRun,
			Runs:        e.runs,
			Failures:    e.failures,
		})
	}
	return infos
}
