package export

import (
	"context"

	id "credtrust/pkg/domain"
)

// Store persists export records. Implementations return
// sentinel.ErrNotFound for missing records.
type Store interface {
	Insert(ctx context.Context, record Record) error
	FindByID(ctx context.Context, exportID id.ExportID) (Record, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]Record, error)
	IncrementAccess(ctx context.Context, exportID id.ExportID) error
}
