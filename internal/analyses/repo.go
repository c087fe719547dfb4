package analyses

import (
	"context"
	"encoding/json"
	"time"
)

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, a Analysis) error
	GetByID(ctx context.Context, id string) (Analysis, error)
	GetForUser(ctx context.Context, userID, id string) (Analysis, error)
	ListByUser(ctx context.Context, userID string) ([]Analysis, error)
	LatestForFile(ctx context.Context, userID, fileID, analysisType string) (Analysis, error)
	ListPending(ctx context.Context, limit int) ([]Analysis, error)
	ListSince(ctx context.Context, since time.Time) ([]Analysis, error)
	UpdateDetails(ctx context.Context, userID, id, name string, config json.RawMessage, updatedAt time.Time) (Analysis, error)
	MarkStarted(ctx context.Context, id string, startedAt time.Time) error
	// Finish applies t only while the analysis is still processing and
	// reports whether it did.
	Finish(ctx context.Context, id string, t Terminal) (bool, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteByFile(ctx context.Context, userID, fileID string) (int, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
