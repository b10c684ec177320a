package inbox

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/internal/signals"
	"github.com/JaimeStill/pulse/pkg/pagination"
)

// ListResult is a page of inbox items plus the global counts. Counts are
// computed independently of the list filter, always.
type ListResult struct {
	pagination.PageResult[ItemDetail]
	Counts Counts `json:"counts"`
}

// ActionCommand is one user action on an inbox item.
type ActionCommand struct {
	Action Action          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
	Actor  string          `json:"-"`
}

// System defines the public contract for the inbox proposal layer. The Tx
// methods run inside a caller-owned transaction: the aggregation engine
// proposes during signal ingest, and the issue package archives through the
// same interface when a transition makes an issue non-actionable.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*ListResult, error)
	Find(ctx context.Context, id uuid.UUID) (*ItemDetail, error)
	Act(ctx context.Context, id uuid.UUID, cmd ActionCommand) (*ItemDetail, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context) (int, error)

	// ProposeIssueTx creates a proposed item wrapping an issue, unless a
	// suppression rule blocks it or an active item already exists. Reports
	// whether an item was created.
	ProposeIssueTx(ctx context.Context, tx *sql.Tx, issue *issues.Issue, now string) (bool, error)

	// ProposeSignalTx creates a proposed item wrapping a raw signal as
	// flagged_signal, orphan, or ambiguous.
	ProposeSignalTx(
		ctx context.Context,
		tx *sql.Tx,
		sig *signals.Signal,
		itemType ItemType,
		title string,
		evidence json.RawMessage,
		now string,
	) (bool, error)

	issues.Archiver
}
