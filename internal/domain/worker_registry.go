package domain

import (
	"context"
	"time"
)

// WorkerRegistry is the process-lifetime store of known workers.
// Implementations must be safe for concurrent use.
type WorkerRegistry interface {
	// Upsert registers or re-registers a worker. An empty id is replaced by a
	// generated one. Re-registration keeps the original RegisteredAt.
	Upsert(ctx context.Context, id, label, endpoint string) (Worker, error)
	// BulkLoad inserts the startup seeds tagged as env. It may run only once.
	BulkLoad(ctx context.Context, seeds []WorkerSeed) (int, error)
	// List returns a snapshot ordered by RegisteredAt ascending.
	List(ctx context.Context) ([]Worker, error)
	// Touch refreshes LastSeenAt. Unknown ids are ignored.
	Touch(ctx context.Context, id string, at time.Time) error
}
