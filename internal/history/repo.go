package history

import "context"

// Repo persists history records. There is no update operation.
type Repo interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, q Query) ([]Record, int, error)
	ListByResource(ctx context.Context, userID, resourceType, resourceID string) ([]Record, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
