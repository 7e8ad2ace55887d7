// Package jobs contains implementations of scheduled jobs for the placement hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM OPEN DRIVES JOB
// ══════════════════════════════════════════════════════════════════════════════

// WarmOpenDrivesJob refreshes the open-drives cache from the repository.
//
// The cache is invalidated on every mutation, so the first read after a
// command pays the repository round trip. During application season the
// open-drives list is the hottest read path on campus; warming it on an
// interval keeps that first read cheap.
type WarmOpenDrivesJob struct {
	driveRepo drive.Repository
	cache     drive.Cache
	logger    *slog.Logger

	config WarmOpenDrivesConfig

	lastRunStats atomic.Value // *WarmOpenDrivesStats
}

// WarmOpenDrivesConfig contains configuration for the cache warming job.
type WarmOpenDrivesConfig struct {
	// ListTTL is the TTL for the open-drives list entry.
	ListTTL time.Duration

	// DriveTTL is the TTL for individual drive entries.
	DriveTTL time.Duration

	// MaxDrives caps how many open drives are loaded per run.
	MaxDrives int

	// Timeout is the maximum duration for a single run.
	Timeout time.Duration
}

// DefaultWarmOpenDrivesConfig returns sensible defaults.
func DefaultWarmOpenDrivesConfig() WarmOpenDrivesConfig {
	return WarmOpenDrivesConfig{
		ListTTL:   5 * time.Minute,
		DriveTTL:  5 * time.Minute,
		MaxDrives: 200,
		Timeout:   30 * time.Second,
	}
}

// WarmOpenDrivesStats contains statistics from a warming run.
type WarmOpenDrivesStats struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	DrivesLoaded int
	DrivesCached int
	CacheErrors  int
}

// NewWarmOpenDrivesJob creates a new cache warming job.
func NewWarmOpenDrivesJob(
	driveRepo drive.Repository,
	cache drive.Cache,
	logger *slog.Logger,
	config WarmOpenDrivesConfig,
) *WarmOpenDrivesJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxDrives <= 0 {
		config.MaxDrives = DefaultWarmOpenDrivesConfig().MaxDrives
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultWarmOpenDrivesConfig().Timeout
	}

	return &WarmOpenDrivesJob{
		driveRepo: driveRepo,
		cache:     cache,
		logger:    logger.With("job", "warm_open_drives"),
		config:    config,
	}
}

// Name returns the unique job name.
func (j *WarmOpenDrivesJob) Name() string {
	return "warm_open_drives"
}

// Description returns a human-readable description.
func (j *WarmOpenDrivesJob) Description() string {
	return "Refreshes the open-drives cache from the repository"
}

// Run executes one warming pass.
func (j *WarmOpenDrivesJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	stats := &WarmOpenDrivesStats{StartedAt: time.Now()}
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
		return fmt.Errorf("warm_open_drives: load open drives: %w", err)
	}
	stats.DrivesLoaded = len(drives)

	if err := j.cache.SetOpenList(ctx, drives, j.config.ListTTL); err != nil {
		stats.CacheErrors++
		j.logger.Warn("failed to cache open-drives list", "error", err)
	}

	for _, d := range drives {
		if err := j.cache.SetDrive(ctx, d, j.config.DriveTTL); err != nil {
			stats.CacheErrors++
			j.logger.Warn("failed to cache drive",
				"drive_id", string(d.ID),
				"error", err,
			)
			continue
		}
		stats.DrivesCached++
	}

	j.logger.Info("open-drives cache warmed",
		"loaded", stats.DrivesLoaded,
		"cached", stats.DrivesCached,
		"cache_errors", stats.CacheErrors,
	)

	return nil
}

// LastRunStats returns statistics from the most recent run, or nil.
func (j *WarmOpenDrivesJob) LastRunStats() *WarmOpenDrivesStats {
	v := j.lastRunStats.Load()
	if v == nil {
		return nil
	}
	return v.(*WarmOpenDrivesStats)
}
