package sharing

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"

	id "credtrust/pkg/domain"
)

// Store persists sharing grants. Implementations return
// sentinel.ErrNotFound for missing grants and sentinel.ErrConflict on
// duplicate inserts.
type Store interface {
	Insert(ctx context.Context, grant Grant) error
	FindByID(ctx context.Context, grantID id.GrantID) (Grant, error)
	FindByToken(ctx context.Context, token string) (Grant, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]Grant, error)
	Update(ctx context.Context, grant Grant) error

	// IncrementAccess bumps AccessCount by one. Kept separate from Update so
	// the postgres implementation can do it in a single atomic statement.
	IncrementAccess(ctx context.Context, grantID id.GrantID) error
}
