// Package memory implements an in-memory drive store.
// Suitable for tests and single-instance development runs; it honors the
// same optimistic-concurrency contract as the PostgreSQL implementation.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// DriveRepository is an in-memory implementation of drive.Repository.
type DriveRepository struct {
	mu     sync.RWMutex
	drives map[shared.DriveID]*drive.Drive
}

// NewDriveRepository creates an empty in-memory repository.
func NewDriveRepository() *DriveRepository {
	return &DriveRepository{
		drives: make(map[shared.DriveID]*drive.Drive),
	}
}

// Create creates a new drive.
func (r *DriveRepository) Create(_ context.Context, d *drive.Drive) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drives[d.ID]; ok {
		return shared.ErrDriveAlreadyExists
	}
	r.drives[d.ID] = d.Clone()
	return nil
}

// GetByID returns a deep copy of the stored drive.
func (r *DriveRepository) GetByID(_ context.Context, id shared.DriveID) (*drive.Drive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drives[id]
	if !ok {
		return nil, shared.ErrDriveNotFound
	}
	return d.Clone(), nil
}

// Save performs a compare-and-swap on the drive version. A stale version
// fails with shared.ErrConcurrentModification and leaves the stored state
// untouched.
func (r *DriveRepository) Save(_ context.Context, d *drive.Drive) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.drives[d.ID]
	if !ok {
		return shared.ErrDriveNotFound
	}
	if stored.Version != d.Version {
		return shared.ErrConcurrentModification
	}

	d.Version++
	r.drives[d.ID] = d.Clone()
	return nil
}

// GetAll returns drives sorted by creation time, newest first.
func (r *DriveRepository) GetAll(_ context.Context, opts drive.ListOptions) ([]*drive.Drive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(opts, func(*drive.Drive) bool { return true }), nil
}

// GetByStatus returns drives in the given status.
func (r *DriveRepository) GetByStatus(_ context.Context, status drive.Status, opts drive.ListOptions) ([]*drive.Drive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(opts, func(d *drive.Drive) bool { return d.Status == status }), nil
}

// GetOpen returns drives that are not yet completed.
func (r *DriveRepository) GetOpen(_ context.Context, opts drive.ListOptions) ([]*drive.Drive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(opts, func(d *drive.Drive) bool { return !d.Status.IsTerminal() }), nil
}

// Count returns the number of stored drives.
func (r *DriveRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drives), nil
}

// list applies a filter, sorts newest first and paginates. Callers hold the lock.
func (r *DriveRepository) list(opts drive.ListOptions, keep func(*drive.Drive) bool) []*drive.Drive {
	var out []*drive.Drive
	for _, d := range r.drives {
		if keep(d) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if opts.Limit <= 0 {
		opts = drive.DefaultListOptions()
	}
	if opts.Offset >= len(out) {
		return nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
