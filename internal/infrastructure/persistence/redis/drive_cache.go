package redis

import (
	"context"
	"errors"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DRIVE CACHE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// openListKey holds the listing of drives still accepting applications.
const openListKey = PrefixDriveList + "open"

// DriveCache implements drive.Cache on top of the shared Cache client.
//
// Values are stored as JSON snapshots of the aggregate. A cached drive can
// be slightly stale; every mutation path calls InvalidateDrive and
// InvalidateLists, and TTLs stay short so leftover entries age out fast.
type DriveCache struct {
	cache *Cache
}

// NewDriveCache creates a new DriveCache.
func NewDriveCache(cache *Cache) *DriveCache {
	return &DriveCache{cache: cache}
}

// GetDrive returns a cached drive, or nil on a miss.
func (c *DriveCache) GetDrive(ctx context.Context, id shared.DriveID) (*drive.Drive, error) {
	var d drive.Drive
	err := c.cache.Get(ctx, driveKey(id), &d)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// SetDrive stores a drive snapshot with the given TTL.
func (c *DriveCache) SetDrive(ctx context.Context, d *drive.Drive, ttl time.Duration) error {
	if d == nil {
		return ErrCacheNilValue
	}
	return c.cache.Set(ctx, driveKey(d.ID), d, ttl)
}

// GetOpenList returns the cached open-drive listing, or nil on a miss.
func (c *DriveCache) GetOpenList(ctx context.Context) ([]*drive.Drive, error) {
	var drives []*drive.Drive
	err := c.cache.Get(ctx, openListKey, &drives)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return drives, nil
}

// SetOpenList stores the open-drive listing with the given TTL.
func (c *DriveCache) SetOpenList(ctx context.Context, drives []*drive.Drive, ttl time.Duration) error {
	return c.cache.Set(ctx, openListKey, drives, ttl)
}

// GetEligibleIDs returns the cached eligibility set for a student,
// or nil on a miss.
func (c *DriveCache) GetEligibleIDs(ctx context.Context, studentID shared.StudentID) ([]shared.DriveID, error) {
	var ids []shared.DriveID
	err := c.cache.Get(ctx, eligibleKey(studentID), &ids)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	if ids == nil {
		// Distinguish "cached empty set" from a miss.
		ids = []shared.DriveID{}
	}
	return ids, nil
}

// SetEligibleIDs stores the eligibility set for a student.
func (c *DriveCache) SetEligibleIDs(ctx context.Context, studentID shared.StudentID, ids []shared.DriveID, ttl time.Duration) error {
	if ids == nil {
		ids = []shared.DriveID{}
	}
	return c.cache.Set(ctx, eligibleKey(studentID), ids, ttl)
}

// InvalidateDrive drops the cached snapshot of a single drive.
func (c *DriveCache) InvalidateDrive(ctx context.Context, id shared.DriveID) error {
	return c.cache.Delete(ctx, driveKey(id))
}

// InvalidateLists drops the open-drive listing and every per-student
// eligibility set. Called after any drive mutation.
func (c *DriveCache) InvalidateLists(ctx context.Context) error {
	if err := c.cache.Delete(ctx, openListKey); err != nil {
		return err
	}
	return c.cache.DeleteByPattern(ctx, PrefixEligible+"*")
}

func driveKey(id shared.DriveID) string {
	return PrefixDrive + string(id)
}

func eligibleKey(studentID shared.StudentID) string {
	return PrefixEligible + string(studentID)
}
