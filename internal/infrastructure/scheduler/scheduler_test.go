package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-cell/campus-placement-hub/pkg/timeutil"
)

type fakeJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j fakeJob) Name() string                  { return j.name }
func (j fakeJob) Description() string           { return "test job" }
func (j fakeJob) Run(ctx context.Context) error { return j.run(ctx) }

func newTestScheduler() *Scheduler {
	return NewScheduler(SchedulerConfig{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timezone: timeutil.CampusTZ,
	})
}

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(5 * time.Minute)
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(5*time.Minute), s.Next(base))
	assert.Equal(t, "every 5m0s", s.String())
}

func TestIntervalSchedule_ClampsSubSecond(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Millisecond)
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(time.Second), s.Next(base))
}

func TestDailySchedule_NextBeforeAndAfterFireTime(t *testing.T) {
	s := NewDailySchedule(8, 0)

	morning := time.Date(2026, 8, 30, 6, 30, 0, 0, timeutil.CampusTZ)
	assert.Equal(t, time.Date(2026, 8, 30, 8, 0, 0, 0, timeutil.CampusTZ), s.Next(morning))

	// Past today's fire time rolls over to tomorrow.
	evening := time.Date(2026, 8, 30, 20, 0, 0, 0, timeutil.CampusTZ)
	assert.Equal(t, time.Date(2026, 8, 31, 8, 0, 0, 0, timeutil.CampusTZ), s.Next(evening))

	// Exactly at fire time also rolls over: Next is strictly after t.
	at := time.Date(2026, 8, 30, 8, 0, 0, 0, timeutil.CampusTZ)
	assert.Equal(t, time.Date(2026, 8, 31, 8, 0, 0, 0, timeutil.CampusTZ), s.Next(at))

	assert.Equal(t, "daily at 08:00", s.String())
}

func TestScheduler_RegisterRejectsDuplicates(t *testing.T) {
	s := newTestScheduler()
	job := fakeJob{name: "warm", run: func(context.Context) error { return nil }}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Minute)), ErrDuplicateJob)
}

func TestScheduler_RegisterValidatesArguments(t *testing.T) {
	s := newTestScheduler()
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(fakeJob{name: "x", run: func(context.Context) error { return nil }}, nil), ErrNilSchedule)
}

func TestScheduler_ListJobs(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.Register(
		fakeJob{name: "digest", run: func(context.Context) error { return nil }},
		NewDailySchedule(8, 0),
	))

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "digest", jobs[0].Name)
	assert.Equal(t, "daily at 08:00", jobs[0].Schedule)
	assert.False(t, jobs[0].NextRun.IsZero())
	assert.Zero(t, jobs[0].Runs)
}

func TestScheduler_StartStopLifecycle(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyActive)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrNotActive)
}

func TestScheduler_RunsDueJob(t *testing.T) {
	s := newTestScheduler()

	done := make(chan struct{})
	job := fakeJob{name: "warm", run: func(context.Context) error {
		close(done)
		return nil
	}}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Second)))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}
