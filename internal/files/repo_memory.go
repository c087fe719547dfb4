package files

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]File
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]File)}
}

func (r *MemoryRepo) Create(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[f.ID] = f
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, fileID string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.data[fileID]
	if !ok || f.UserID != userID {
		return File{}, ErrNotFound
	}
	return f, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.collect(func(f File) bool { return f.UserID == userID }), nil
}

func (r *MemoryRepo) ListSince(ctx context.Context, since time.Time) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.collect(func(f File) bool { return !f.UploadedAt.Before(since) }), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.data[fileID]
	if !ok || f.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, fileID)
	return nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []File
	for id, f := range r.data {
		if f.UserID == userID {
			removed = append(removed, f.Summary())
			delete(r.data, id)
		}
	}
	return removed, nil
}

// collect returns matching summaries, newest first.
func (r *MemoryRepo) collect(keep func(File) bool) []File {
	r.mu.RLock()
	out := []File{}
	for _, f := range r.data {
		if keep(f) {
			out = append(out, f.Summary())
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out
}

var _ Repo = (*MemoryRepo)(nil)
