package signals

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/pkg/pagination"
)

// System defines the public contract for signal domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Signal], error)

	Find(ctx context.Context, id uuid.UUID) (*Signal, error)
	Ingest(ctx context.Context, cmd IngestCommand) (*IngestResult, error)
}

// Aggregator receives every newly created signal inside the ingest
// transaction. Failure rolls back the signal insert: a signal is never
// persisted without its lifecycle consequences.
type Aggregator interface {
	SignalIngested(ctx context.Context, tx *sql.Tx, sig *Signal, now string) error
}
