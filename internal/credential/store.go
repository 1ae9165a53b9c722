package credential

import (
	"context"

	id "credtrust/pkg/domain"
)

// Store is the persistence boundary for credentials. Implementations return
// sentinel.ErrNotFound when a credential does not exist.
type Store interface {
	Insert(ctx context.Context, credential Credential) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (Credential, error)
	FindByRecipient(ctx context.Context, recipientID id.UserID) ([]Credential, error)
	UpdateStatus(ctx context.Context, credentialID id.CredentialID, update StatusUpdate) error
}
