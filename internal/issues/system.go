package issues

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/pkg/pagination"
)

// IssueDetail is an issue plus its server-computed allowed-action set. The
// action set comes from the same table transition validation uses, so a
// client can never be offered an action the server would reject.
type IssueDetail struct {
	Issue
	AllowedActions []Action `json:"allowed_actions"`
}

// ActionCommand is one user action on an issue. Params carries the action's
// exact payload; unknown fields are rejected.
type ActionCommand struct {
	Action Action          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
	Actor  string          `json:"-"`
}

// RuleRetirer retires suppression rules tied to an issue when a user
// unsuppresses it. Implemented by the suppression engine.
type RuleRetirer interface {
	RetireForIssueTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, now string) error
}

// System defines the public contract for issue domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Issue], error)

	Find(ctx context.Context, id uuid.UUID) (*IssueDetail, error)
	Act(ctx context.Context, id uuid.UUID, cmd ActionCommand) (*IssueDetail, error)
	Transitions(ctx context.Context, id uuid.UUID) ([]Transition, error)
}
