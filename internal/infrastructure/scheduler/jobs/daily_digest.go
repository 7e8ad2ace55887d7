package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY DIGEST JOB
// ══════════════════════════════════════════════════════════════════════════════

// Notifier delivers a digest message to a recipient.
// Satisfied by service.LogSender and any future mail/SMS sender.
type Notifier interface {
	Send(recipientID, subject, body string) error
}

// DailyDigestJob compiles a daily summary of placement activity for the
// placement-cell coordinators: drives scheduled for today, drives currently
// in progress, and application volume across open drives.
type DailyDigestJob struct {
	driveRepo drive.Repository
	notifier  Notifier
	logger    *slog.Logger

	config DailyDigestConfig

	lastRunStats atomic.Value // *DailyDigestStats
}

// DailyDigestConfig contains configuration for the daily digest job.
type DailyDigestConfig struct {
	// Recipients are coordinator IDs that receive the digest.
	Recipients []string

	// MaxDrives caps how many open drives are included per run.
	MaxDrives int

	// Timeout is the maximum duration for a single run.
	Timeout time.Duration
}

// DefaultDailyDigestConfig returns sensible defaults.
func DefaultDailyDigestConfig() DailyDigestConfig {
	return DailyDigestConfig{
		MaxDrives: 200,
		Timeout:   time.Minute,
	}
}

// DailyDigestStats contains statistics from a digest run.
type DailyDigestStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	DrivesIncluded int
	DrivesToday    int
	DigestsSent    int
	DigestsFailed  int
}

// NewDailyDigestJob creates a new daily digest job.
func NewDailyDigestJob(
	driveRepo drive.Repository,
	notifier Notifier,
	logger *slog.Logger,
	config DailyDigestConfig,
) *DailyDigestJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxDrives <= 0 {
		config.MaxDrives = DefaultDailyDigestConfig().MaxDrives
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDailyDigestConfig().Timeout
	}

	return &DailyDigestJob{
		driveRepo: driveRepo,
		notifier:  notifier,
		logger:    logger.With("job", "daily_digest"),
		config:    config,
	}
}

// Name returns the unique job name.
func (j *DailyDigestJob) Name() string {
	return "daily_digest"
}

// Description returns a human-readable description.
func (j *DailyDigestJob) Description() string {
	return "Sends coordinators a daily summary of placement activity"
}

// Run compiles and delivers the digest.
func (j *DailyDigestJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	stats := &DailyDigestStats{StartedAt: time.Now()}
	defer func() {
		stats.CompletedAt = time.Now()
		stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
		j.lastRunStats.Store(stats)
	}()

	drives, err := j.driveRepo.GetOpen(ctx, drive.ListOptions{
		Limit:  j.config.MaxDrives,
		Offset: 0,
	})
	if err != nil {
		return fmt.Errorf("daily_digest: load open drives: %w", err)
	}
	stats.DrivesIncluded = len(drives)

	body := j.buildDigest(drives, stats)
	subject := "Placement digest for " + timeutil.FormatDateStr(timeutil.Now())

	for _, recipient := range j.config.Recipients {
		if err := j.notifier.Send(recipient, subject, body); err != nil {
			stats.DigestsFailed++
			j.logger.Warn("failed to deliver digest",
				"recipient", recipient,
				"error", err,
			)
			continue
		}
		stats.DigestsSent++
	}

	j.logger.Info("daily digest completed",
		"drives", stats.DrivesIncluded,
		"drives_today", stats.DrivesToday,
		"sent", stats.DigestsSent,
		"failed", stats.DigestsFailed,
	)

	return nil
}

// buildDigest renders the digest body and fills run stats along the way.
func (j *DailyDigestJob) buildDigest(drives []*drive.Drive, stats *DailyDigestStats) string {
	var upcoming, inProgress int
	var today []*drive.Drive
	var totalApplications int

	for _, d := range drives {
		switch d.Status {
		case drive.StatusUpcoming:
			upcoming++
		case drive.StatusInProgress:
			inProgress++
		}
		totalApplications += len(d.Applications)
		if !d.Date.IsZero() && timeutil.IsToday(d.Date) {
			today = append(today, d)
		}
	}
	stats.DrivesToday = len(today)

	var b strings.Builder
	fmt.Fprintf(&b, "Open drives: %d (%d upcoming, %d in progress)\n",
		len(drives), upcoming, inProgress)
	fmt.Fprintf(&b, "Applications across open drives: %d\n", totalApplications)

	if len(today) == 0 {
		b.WriteString("No drives scheduled for today.\n")
		return b.String()
	}

	b.WriteString("Scheduled today:\n")
	for _, d := range today {
		fmt.Fprintf(&b, "  - %s (%s): %d applicants, %d phases\n",
			d.CompanyName, d.Role, len(d.Applications), len(d.Phases))
	}

	return b.String()
}

// LastRunStats returns statistics from the most recent run, or nil.
func (j *DailyDigestJob) LastRunStats() *DailyDigestStats {
	v := j.lastRunStats.Load()
	if v == nil {
		return nil
	}
	return v.(*DailyDigestStats)
}
