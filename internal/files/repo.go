package files

import (
	"context"
	"time"
)

// Repo persists uploaded files. Listing methods omit the record set.
type Repo interface {
	Create(ctx context.Context, f File) error
	GetByID(ctx context.Context, userID, fileID string) (File, error)
	ListByUser(ctx context.Context, userID string) ([]File, error)
	ListSince(ctx context.Context, since time.Time) ([]File, error)
	Delete(ctx context.Context, userID, fileID string) error
	DeleteByUser(ctx context.Context, userID string) ([]File, error)
}
