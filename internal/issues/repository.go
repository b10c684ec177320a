package issues

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/pkg/fault"
	"github.com/JaimeStill/pulse/pkg/pagination"
	"github.com/JaimeStill/pulse/pkg/query"
	"github.com/JaimeStill/pulse/pkg/repository"
	"github.com/JaimeStill/pulse/pkg/timestamp"
)

type repo struct {
	db         *sql.DB
	org        *timestamp.Org
	config     Config
	archiver   Archiver
	rules      RuleRetirer
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an issue repository implementing the System interface.
// The archiver and rule retirer wire lifecycle consequences into the inbox
// and suppression layers without this package importing them.
func New(
	db *sql.DB,
	org *timestamp.Org,
	config Config,
	archiver Archiver,
	rules RuleRetirer,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		org:        org,
		config:     config,
		archiver:   archiver,
		rules:      rules,
		logger:     logger.With("system", "issues"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Issue], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Summary", "AggregationKey")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanIssue)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*IssueDetail, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	issue, err := repository.QueryOne(ctx, r.db, q, args, scanIssue)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return detail(issue), nil
}

func (r *repo) Transitions(ctx context.Context, id uuid.UUID) ([]Transition, error) {
	q := `
		SELECT id, issue_id, prev_state, new_state, reason, trigger_signal_id, trigger_rule, actor, created_at
		FROM issue_transitions
		WHERE issue_id = $1
		ORDER BY created_at, id`

	entries, err := repository.QueryMany(ctx, r.db, q, []any{id}, scanTransition)
	if err != nil {
		return nil, fmt.Errorf("query issue transitions: %w", err)
	}

	return entries, nil
}

// Act applies one user action. The issue is re-read under a row lock and the
// action re-validated against the allow-table inside the transaction, so a
// racing sweep or detector cannot slip a write between check and apply.
func (r *repo) Act(ctx context.Context, id uuid.UUID, cmd ActionCommand) (*IssueDetail, error) {
	issue, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Issue, error) {
		locked, err := FindForUpdateTx(ctx, tx, id)
		if err != nil {
			return Issue{}, err
		}

		if !ActionAllowed(locked.State, locked.Suppressed, cmd.Action) {
			return Issue{}, fault.New(
				fault.InvalidState,
				"action %q not permitted for issue in state %q",
				cmd.Action, locked.State,
			)
		}

		now := timestamp.Now()
		if err := r.apply(ctx, tx, locked, cmd, now); err != nil {
			return Issue{}, err
		}

		reloaded, err := FindForUpdateTx(ctx, tx, id)
		if err != nil {
			return Issue{}, err
		}
		return *reloaded, nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("issue action applied",
		"id", id,
		"action", cmd.Action,
		"state", issue.State,
		"actor", cmd.Actor,
	)

	return detail(issue), nil
}

func (r *repo) apply(ctx context.Context, tx *sql.Tx, issue *Issue, cmd ActionCommand, now string) error {
	switch cmd.Action {
	case ActionAcknowledge:
		if err := decodeParams(cmd.Params, &struct{}{}); err != nil {
			return err
		}
		return TransitionTx(ctx, tx, r.archiver, TransitionSpec{
			IssueID: issue.ID,
			Prev:    issue.State,
			Next:    StateAcknowledged,
			Reason:  ReasonUser,
			Actor:   cmd.Actor,
		}, now)

	case ActionAssign:
		var p struct {
			Assignee string `json:"assignee"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return err
		}
		if p.Assignee == "" {
			return fault.New(fault.MissingParam, "assign requires assignee")
		}

		if err := AssignTx(ctx, tx, issue.ID, p.Assignee, now); err != nil {
			return err
		}

		return TransitionTx(ctx, tx, r.archiver, TransitionSpec{
			IssueID: issue.ID,
			Prev:    issue.State,
			Next:    StateAddressing,
			Reason:  ReasonUser,
			Actor:   cmd.Actor,
		}, now)

	case ActionSnooze:
		var p struct {
			Days int `json:"days"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return err
		}
		if p.Days < 1 || p.Days > r.config.SnoozeMaxDays {
			return fault.New(fault.InvalidParam, "snooze days must be between 1 and %d", r.config.SnoozeMaxDays)
		}

		until := r.org.MidnightAfterDays(time.Now(), p.Days)
		return SnoozeTx(ctx, tx, r.archiver, issue.ID, issue.State, cmd.Actor, until, now)

	case ActionUnsnooze:
		if err := decodeParams(cmd.Params, &struct{}{}); err != nil {
			return err
		}
		if issue.SnoozedFrom == nil {
			return fault.New(fault.InvalidState, "snoozed issue has no restore state")
		}
		return RestoreFromSnoozeTx(ctx, tx, issue.ID, *issue.SnoozedFrom, ReasonUser, cmd.Actor, now)

	case ActionAwait:
		if err := decodeParams(cmd.Params, &struct{}{}); err != nil {
			return err
		}
		return TransitionTx(ctx, tx, r.archiver, TransitionSpec{
			IssueID: issue.ID,
			Prev:    issue.State,
			Next:    StateAwaitingResolution,
			Reason:  ReasonUser,
			Actor:   cmd.Actor,
		}, now)

	case ActionResolve:
		if err := decodeParams(cmd.Params, &struct{}{}); err != nil {
			return err
		}
		watchUntil := r.org.MidnightAfterDays(time.Now(), r.config.RegressionWatchDays)
		return ResolveTx(ctx, tx, r.archiver, issue.ID, issue.State, cmd.Actor, watchUntil, now)

	case ActionEscalate:
		if err := decodeParams(cmd.Params, &struct{}{}); err != nil {
			return err
		}

		next := EscalateSeverity(issue.Severity)
		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE issues
			SET severity = $2, severity_source = 'user', escalated = true, updated_at = $3
			WHERE id = $1`,
			issue.ID, next, now,
		); err != nil {
			return repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		spec := TransitionSpec{
			IssueID: issue.ID,
			Prev:    issue.State,
			Next:    issue.State,
			Reason:  ReasonUser,
			Actor:   cmd.Actor,
		}
		return logTransitionTx(ctx, tx, spec, now)

	case ActionUnsuppress:
		if err := decodeParams(cmd.Params, &struct{}{}); err != nil {
			return err
		}
		if err := UnsuppressIssueTx(ctx, tx, issue.ID, now); err != nil {
			return err
		}
		if r.rules != nil {
			return r.rules.RetireForIssueTx(ctx, tx, issue.ID, now)
		}
		return nil

	default:
		return fault.New(fault.InvalidParam, "unknown action %q", cmd.Action)
	}
}

// decodeParams enforces the exact payload contract for an action: unknown
// fields reject with unexpected_param, malformed JSON with invalid_param.
func decodeParams(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			return fault.Wrap(fault.InvalidParam, err, "malformed action parameters")
		}
		if _, ok := dest.(*struct{}); ok {
			return fault.Wrap(fault.UnexpectedParam, err, "action accepts no parameters")
		}
		return fault.Wrap(fault.UnexpectedParam, err, "unexpected action parameters")
	}

	return nil
}

func detail(issue Issue) *IssueDetail {
	return &IssueDetail{
		Issue:          issue,
		AllowedActions: AllowedActions(issue.State, issue.Suppressed),
	}
}
