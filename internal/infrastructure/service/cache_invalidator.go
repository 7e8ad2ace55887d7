package service

import (
	"context"
	"log/slog"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INVALIDATOR
// ══════════════════════════════════════════════════════════════════════════════

// CacheInvalidator drops stale cache entries in response to drive
// mutation events. Every mutation invalidates the affected drive plus
// the listing caches, because a single status change can move a drive
// in or out of the open list and the per-student eligibility sets.
type CacheInvalidator struct {
	cache  drive.Cache
	logger *slog.Logger
}

// NewCacheInvalidator creates a new CacheInvalidator.
func NewCacheInvalidator(cache drive.Cache, logger *slog.Logger) *CacheInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheInvalidator{
		cache:  cache,
		logger: logger.With("component", "cache_invalidator"),
	}
}

// mutationEvents are the event types that change a drive aggregate.
var mutationEvents = []shared.EventType{
	shared.EventDriveCreated,
	shared.EventDriveCompleted,
	shared.EventApplicationSubmitted,
	shared.EventApplicationStatusChanged,
	shared.EventPhaseAdded,
	shared.EventStudentShortlisted,
	shared.EventStudentUnattended,
	shared.EventStudentSelected,
	shared.EventStudentRemoved,
}

// RegisterHandlers subscribes the invalidator to all mutation events.
// Handlers run sync so reads issued right after a command see fresh data.
func (s *CacheInvalidator) RegisterHandlers(d *messaging.Dispatcher) error {
	for _, eventType := range mutationEvents {
		name := "cache-invalidator-" + string(eventType)
		handler := func(e shared.Event) error {
			return s.onMutation(context.Background(), e)
		}
		if err := d.RegisterSync(eventType, name, handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *CacheInvalidator) onMutation(ctx context.Context, e shared.Event) error {
	driveID := shared.DriveID(e.AggregateID())

	if err := s.cache.InvalidateDrive(ctx, driveID); err != nil {
		s.logger.Warn("drive cache invalidation failed",
			"drive_id", driveID,
			"event", e.EventType(),
			"error", err)
	}
	if err := s.cache.InvalidateLists(ctx); err != nil {
		s.logger.Warn("list cache invalidation failed",
			"event", e.EventType(),
			"error", err)
	}

	// Invalidation is best-effort: short TTLs bound the staleness window
	// if eviction fails, so the event is never retried or dead-lettered.
	return nil
}
