package suppression

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/pkg/pagination"
)

// System defines the public contract for the suppression engine.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Rule], error)

	// Delete soft-deletes a rule and immediately unsuppresses its linked
	// issue. The admin path around the hourly reconciliation lag.
	Delete(ctx context.Context, id uuid.UUID, actor string) error

	// ActiveTx returns the non-expired rule for a key, or nil. Every
	// proposal attempt goes through this lookup.
	ActiveTx(ctx context.Context, tx *sql.Tx, key, now string) (*Rule, error)

	// UpsertRuleTx records a dismissal: insert, or revive and re-expire an
	// existing rule for the same key.
	UpsertRuleTx(ctx context.Context, tx *sql.Tx, rule *Rule) error

	// RetireForIssueTx soft-deletes every active rule tied to an issue.
	RetireForIssueTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, now string) error

	// ExpiryFor computes the canonical expiry timestamp for an item type
	// dismissed now: org-local midnight TTL days out.
	ExpiryFor(itemType string) string
}
