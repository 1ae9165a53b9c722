package dispute

import (
	"context"

	id "credtrust/pkg/domain"
)

// Store persists disputes. Implementations return sentinel.ErrNotFound for
// missing disputes.
type Store interface {
	Insert(ctx context.Context, dispute Dispute) error
	FindByID(ctx context.Context, disputeID id.DisputeID) (Dispute, error)
	FindByCredential(ctx context.Context, credentialID id.CredentialID) ([]Dispute, error)
	Update(ctx context.Context, dispute Dispute) error
}
