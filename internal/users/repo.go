package users

import (
	"context"
	"time"
)

// Repo defines persistence operations for users. Create and Update return
// ErrEmailTaken when the email belongs to another account.
type Repo interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	ListSince(ctx context.Context, since time.Time) ([]User, error)
	Update(ctx context.Context, u User) error
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
