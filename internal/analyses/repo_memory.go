package analyses

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Analysis)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[a.ID] = a
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.data[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) GetForUser(ctx context.Context, userID, id string) (Analysis, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	if a.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.collect(func(a Analysis) bool { return a.UserID == userID }), nil
}

func (r *MemoryRepo) LatestForFile(ctx context.Context, userID, fileID, analysisType string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	matches := r.collect(func(a Analysis) bool {
		return a.UserID == userID && a.FileID == fileID && a.Type == analysisType
	})
	if len(matches) == 0 {
		return Analysis{}, ErrNotFound
	}
	return matches[0], nil
}

func (r *MemoryRepo) ListPending(ctx context.Context, limit int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.collect(func(a Analysis) bool { return a.Status == StatusProcessing })
	// Oldest first so resumed work keeps submission order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ListSince(ctx context.Context, since time.Time) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.collect(func(a Analysis) bool { return !a.CreatedAt.Before(since) }), nil
}

func (r *MemoryRepo) UpdateDetails(ctx context.Context, userID, id, name string, config json.RawMessage, updatedAt time.Time) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok || a.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	if name != "" {
		a.Name = name
	}
	if len(config) > 0 {
		a.Config = config
	}
	a.UpdatedAt = updatedAt
	r.data[id] = a
	return a, nil
}

func (r *MemoryRepo) MarkStarted(ctx context.Context, id string, startedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status == StatusProcessing && a.StartedAt == nil {
		at := startedAt
		a.StartedAt = &at
		a.UpdatedAt = startedAt
		r.data[id] = a
	}
	return nil
}

func (r *MemoryRepo) Finish(ctx context.Context, id string, t Terminal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok || a.Status != StatusProcessing {
		return false, nil
	}
	at := t.CompletedAt
	a.Status = t.Status
	a.Results = t.Results
	if len(t.ChartConfig) > 0 {
		a.ChartConfig = t.ChartConfig
	}
	a.ErrorCode = t.ErrorCode
	a.ErrorMessage = t.ErrorMessage
	a.CompletedAt = &at
	a.UpdatedAt = at
	r.data[id] = a
	return true, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) DeleteByFile(ctx context.Context, userID, fileID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.deleteWhere(func(a Analysis) bool { return a.UserID == userID && a.FileID == fileID }), nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.deleteWhere(func(a Analysis) bool { return a.UserID == userID }), nil
}

func (r *MemoryRepo) deleteWhere(match func(Analysis) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.data {
		if match(a) {
			delete(r.data, id)
			n++
		}
	}
	return n
}

// collect returns matching analyses, newest first.
func (r *MemoryRepo) collect(keep func(Analysis) bool) []Analysis {
	r.mu.RLock()
	out := []Analysis{}
	for _, a := range r.data {
		if keep(a) {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

var _ Repo = (*MemoryRepo)(nil)
