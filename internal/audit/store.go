package audit

import "context"

// Sink accepts audit entries. The durable Store satisfies it, as do the
// async Worker and the Kafka Publisher, so the recorder can be pointed at
// whichever pipeline the deployment wires up.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Store is the durable, queryable audit log.
type Store interface {
	Sink
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
	ListByCredential(ctx context.Context, credentialID string) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}
