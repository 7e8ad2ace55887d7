package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job at a fixed interval, e.g. cache warming
// every five minutes. Intervals below one second are clamped.
type IntervalSchedule struct {
	every time.Duration
}

// NewIntervalSchedule creates an interval schedule.
func NewIntervalSchedule(every time.Duration) IntervalSchedule {
	if every < time.Second {
		every = time.Second
	}
	return IntervalSchedule{every: every}
}

// Next returns t plus the interval.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.every)
}

// String implements Schedule.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("every %s", s.every)
}

// DailySchedule runs a job once a day at a fixed wall-clock time in the
// scheduler timezone, e.g. the morning digest at 08:00 campus time.
type DailySchedule struct {
	hour   int
	minute int
}

// NewDailySchedule creates a daily schedule. Out-of-range values wrap
// the way time.Date normalizes them.
func NewDailySchedule(hour, minute int) DailySchedule {
	return DailySchedule{hour: hour, minute: minute}
}

// Next returns the next occurrence of the configured wall-clock time
// strictly after t, in the location of t.
func (s DailySchedule) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), s.hour, s.minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// String implements Schedule.
func (s DailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
}
