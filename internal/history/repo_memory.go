package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, q Query) ([]Record, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	matched := r.filter(func(rec Record) bool {
		return rec.UserID == q.UserID && (q.ResourceType == "" || rec.ResourceType == q.ResourceType)
	})
	total := len(matched)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Record{}, total, nil
	}
	end := total
	if q.Limit > 0 && offset+q.Limit < end {
		end = offset + q.Limit
	}
	return matched[offset:end], total, nil
}

func (r *MemoryRepo) ListByResource(ctx context.Context, userID, resourceType, resourceID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.filter(func(rec Record) bool {
		return rec.UserID == userID && rec.ResourceType == resourceType && rec.ResourceID == resourceID
	}), nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	removed := 0
	for _, rec := range r.records {
		if rec.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return removed, nil
}

// filter returns matching records newest first.
func (r *MemoryRepo) filter(keep func(Record) bool) []Record {
	r.mu.RLock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

var _ Repo = (*MemoryRepo)(nil)
