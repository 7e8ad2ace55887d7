package redis

import (
	"context"
	"errors"
	"time"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHED STUDENT DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

// PrefixStudent is the prefix for cached student directory entries.
const PrefixStudent = "student:"

// studentTTL bounds staleness of directory entries. Student records change
// rarely (grade updates land between semesters), so a longer TTL is safe.
const studentTTL = 15 * time.Minute

// CachedDirectory is a read-through cache in front of a student.Directory.
// Roster ingestion resolves the same identifiers repeatedly (a shortlist
// re-upload touches mostly the same students), which makes directory
// lookups the dominant cost of a phase append without this layer.
//
// Cache failures fall through to the inner directory; only negative
// lookups are never cached, so a freshly admitted student is visible
// immediately.
type CachedDirectory struct {
	inner student.Directory
	cache *Cache
}

// NewCachedDirectory wraps a directory with read-through caching.
func NewCachedDirectory(inner student.Directory, cache *Cache) *CachedDirectory {
	return &CachedDirectory{
		inner: inner,
		cache: cache,
	}
}

// Resolve resolves an identifier, consulting the cache first.
func (d *CachedDirectory) Resolve(ctx context.Context, identifier shared.Identifier) (*student.Student, error) {
	key := PrefixStudent + "ident:" + identifier.Normalize().String()

	var cached student.Student
	if err := d.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		return d.inner.Resolve(ctx, identifier)
	}

	s, err := d.inner.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	_ = d.cache.Set(ctx, key, s, studentTTL)
	return s, nil
}

// ResolveByID resolves a student by internal ID, consulting the cache first.
func (d *CachedDirectory) ResolveByID(ctx context.Context, id shared.StudentID) (*student.Student, error) {
	key := d.idKey(id)

	var cached student.Student
	if err := d.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		return d.inner.ResolveByID(ctx, id)
	}

	s, err := d.inner.ResolveByID(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = d.cache.Set(ctx, key, s, studentTTL)
	return s, nil
}

// ResolveMany resolves a batch of IDs. Cached entries are served locally,
// the remainder goes to the inner directory in one call. Missing records
// are skipped, matching the Directory contract.
func (d *CachedDirectory) ResolveMany(ctx context.Context, ids []shared.StudentID) ([]*student.Student, error) {
	resolved := make([]*student.Student, 0, len(ids))
	var misses []shared.StudentID

	for _, id := range ids {
		var cached student.Student
		if err := d.cache.Get(ctx, d.idKey(id), &cached); err == nil {
			resolved = append(resolved, &cached)
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return resolved, nil
	}

	fetched, err := d.inner.ResolveMany(ctx, misses)
	if err != nil {
		return nil, err
	}

	for _, s := range fetched {
		_ = d.cache.Set(ctx, PrefixStudent+"id:"+s.ID, s, studentTTL)
		resolved = append(resolved, s)
	}

	return resolved, nil
}

func (d *CachedDirectory) idKey(id shared.StudentID) string {
	return PrefixStudent + "id:" + string(id)
}
