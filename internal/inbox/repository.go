package inbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/engagements"
	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/internal/signals"
	"github.com/JaimeStill/pulse/internal/suppression"
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
	rules      suppression.System
	scopes     engagements.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an inbox repository implementing the System interface.
func New(
	db *sql.DB,
	org *timestamp.Org,
	config Config,
	rules suppression.System,
	scopes engagements.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		org:        org,
		config:     config,
		rules:      rules,
		scopes:     scopes,
		logger:     logger.With("system", "inbox"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*ListResult, error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Title")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count inbox items: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	rows, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanItemRow)
	if err != nil {
		return nil, fmt.Errorf("query inbox items: %w", err)
	}

	details := make([]ItemDetail, len(rows))
	for i, row := range rows {
		details[i] = row.detail()
	}

	counts, err := r.counts(ctx)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		PageResult: pagination.NewPageResult(details, total, page.Page, page.PageSize),
		Counts:     counts,
	}, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*ItemDetail, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	row, err := repository.QueryOne(ctx, r.db, q, args, scanItemRow)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	detail := row.detail()
	return &detail, nil
}

// Act applies one user action. The item is locked and its state re-checked
// inside the transaction, so a dismiss racing a detector refresh or a sweep
// always wins or always loses cleanly, never both.
func (r *repo) Act(ctx context.Context, id uuid.UUID, cmd ActionCommand) (*ItemDetail, error) {
	item, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (InboxItem, error) {
		locked, err := findForUpdateTx(ctx, tx, id)
		if err != nil {
			return InboxItem{}, err
		}

		if locked.State.Terminal() {
			return InboxItem{}, ErrTerminal
		}

		if !ActionAllowed(locked.ItemType, locked.State, cmd.Action) {
			return InboxItem{}, fault.New(
				fault.InvalidState,
				"action %q not permitted for %s item in state %q",
				cmd.Action, locked.ItemType, locked.State,
			)
		}

		now := timestamp.Now()
		if err := r.apply(ctx, tx, locked, cmd, now); err != nil {
			return InboxItem{}, err
		}

		reloaded, err := findForUpdateTx(ctx, tx, id)
		if err != nil {
			return InboxItem{}, err
		}
		return *reloaded, nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("inbox action applied",
		"id", id,
		"action", cmd.Action,
		"state", item.State,
		"actor", cmd.Actor,
	)

	return r.Find(ctx, id)
}

func (r *repo) MarkRead(ctx context.Context, id uuid.UUID) error {
	now := timestamp.Now()

	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE inbox_items SET read_at = COALESCE(read_at, $2) WHERE id = $1",
		id, now,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) MarkAllRead(ctx context.Context) (int, error) {
	now := timestamp.Now()

	result, err := r.db.ExecContext(
		ctx,
		"UPDATE inbox_items SET read_at = $1 WHERE state = 'proposed' AND read_at IS NULL",
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(n), nil
}

func (r *repo) ProposeIssueTx(ctx context.Context, tx *sql.Tx, issue *issues.Issue, now string) (bool, error) {
	scope := suppression.Scope{
		ClientID:             issue.ClientID,
		EngagementID:         issue.EngagementID,
		BrandID:              issue.BrandID,
		RootCauseFingerprint: issue.RootCauseFingerprint,
	}

	key, err := suppression.Key(suppression.ItemIssue, scope)
	if err != nil {
		return false, err
	}

	rule, err := r.rules.ActiveTx(ctx, tx, key, now)
	if err != nil {
		return false, err
	}
	if rule != nil {
		r.logger.Debug("proposal suppressed", "issue", issue.ID, "key", key)
		return false, nil
	}

	active, err := hasActiveItemTx(ctx, tx, "issue_id", issue.ID)
	if err != nil || active {
		return false, err
	}

	item := &InboxItem{
		ID:       uuid.New(),
		ItemType: TypeIssue,
		State:    StateProposed,
		Severity: issue.Severity,
		IssueID:  &issue.ID,
		Title:    issue.Summary,
	}

	return r.insertTx(ctx, tx, item, now)
}

func (r *repo) ProposeSignalTx(
	ctx context.Context,
	tx *sql.Tx,
	sig *signals.Signal,
	itemType ItemType,
	title string,
	evidence json.RawMessage,
	now string,
) (bool, error) {
	if itemType == TypeIssue || !itemType.Valid() {
		return false, fault.New(fault.InvalidParam, "item type %q cannot wrap a signal", itemType)
	}

	scope := suppression.Scope{
		ClientID:      sig.ClientID,
		EngagementID:  sig.EngagementID,
		BrandID:       sig.BrandID,
		RuleTriggered: sig.RuleTriggered,
	}

	key, err := suppression.Key(string(itemType), scope)
	if err != nil {
		return false, err
	}

	rule, err := r.rules.ActiveTx(ctx, tx, key, now)
	if err != nil {
		return false, err
	}
	if rule != nil {
		r.logger.Debug("proposal suppressed", "signal", sig.ID, "key", key)
		return false, nil
	}

	active, err := hasActiveItemTx(ctx, tx, "signal_id", sig.ID)
	if err != nil || active {
		return false, err
	}

	severity := issues.SeverityLow
	if sig.Sentiment == signals.SentimentBad {
		severity = issues.SeverityModerate
	}

	item := &InboxItem{
		ID:       uuid.New(),
		ItemType: itemType,
		State:    StateProposed,
		Severity: severity,
		SignalID: &sig.ID,
		Title:    title,
		Evidence: evidence,
	}

	return r.insertTx(ctx, tx, item, now)
}

// ArchiveForIssueTx terminalizes any active item wrapping the issue. Called
// by the issue package whenever a transition makes the issue non-actionable;
// zero matching items is the common case and not an error.
func (r *repo) ArchiveForIssueTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, resolution, now string) error {
	q := `
		UPDATE inbox_items
		SET state = 'linked_to_issue', resolved_at = $3, resolution_reason = $2,
			snooze_until = NULL, snoozed_at = NULL, snoozed_by = NULL, updated_at = $3
		WHERE issue_id = $1 AND state IN ('proposed', 'snoozed')`

	if _, err := tx.ExecContext(ctx, q, issueID, resolution, now); err != nil {
		return fmt.Errorf("archive inbox items for issue: %w", err)
	}
	return nil
}

// ResurfaceTx returns a snoozed item to proposed. Only the snooze-expiry
// sweep calls it: resurfaced_at is timer-owned and read_at is untouched.
func ResurfaceTx(ctx context.Context, tx *sql.Tx, itemID uuid.UUID, now string) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE inbox_items
		SET state = 'proposed', resurfaced_at = $2,
			snooze_until = NULL, snoozed_at = NULL, snoozed_by = NULL, updated_at = $2
		WHERE id = $1 AND state = 'snoozed'`,
		itemID, now,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) insertTx(ctx context.Context, tx *sql.Tx, item *InboxItem, now string) (bool, error) {
	if item.Evidence == nil {
		item.Evidence = json.RawMessage("{}")
	}

	q := `
		INSERT INTO inbox_items(id, item_type, state, severity, issue_id, signal_id, title, evidence,
			proposed_at, last_refreshed_at, updated_at)
		VALUES ($1, $2, 'proposed', $3, $4, $5, $6, $7, $8, $8, $8)`

	_, err := tx.ExecContext(ctx, q,
		item.ID,
		item.ItemType,
		item.Severity,
		item.IssueID,
		item.SignalID,
		item.Title,
		[]byte(item.Evidence),
		now,
	)
	if err != nil {
		// A racing proposer hit the active-item partial unique index first.
		if repository.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert inbox item: %w", err)
	}

	r.logger.Info("inbox item proposed", "id", item.ID, "type", item.ItemType, "title", item.Title)
	return true, nil
}

func (r *repo) counts(ctx context.Context) (Counts, error) {
	q := `
		SELECT
			COUNT(*) FILTER (WHERE state = 'proposed'),
			COUNT(*) FILTER (WHERE state = 'snoozed'),
			COUNT(*) FILTER (WHERE state = 'dismissed'),
			COUNT(*) FILTER (WHERE state = 'linked_to_issue'),
			COUNT(*) FILTER (WHERE state = 'proposed' AND read_at IS NULL)
		FROM inbox_items`

	var c Counts
	err := r.db.QueryRowContext(ctx, q).Scan(
		&c.Proposed,
		&c.Snoozed,
		&c.Dismissed,
		&c.LinkedToIssue,
		&c.Unread,
	)
	if err != nil {
		return Counts{}, fmt.Errorf("count inbox items: %w", err)
	}

	return c, nil
}

const itemColumns = `id, item_type, state, severity, issue_id, signal_id, title, evidence,
	suppression_key, proposed_at, last_refreshed_at, resurfaced_at, read_at,
	snooze_until, snoozed_at, snoozed_by, dismissed_at, dismissed_by, dismiss_reason,
	resolved_at, resolution_reason, updated_at`

func findForUpdateTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*InboxItem, error) {
	q := fmt.Sprintf("SELECT %s FROM inbox_items WHERE id = $1 FOR UPDATE", itemColumns)

	item, err := repository.QueryOne(ctx, tx, q, []any{id}, scanItem)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &item, nil
}

func hasActiveItemTx(ctx context.Context, tx *sql.Tx, column string, id uuid.UUID) (bool, error) {
	q := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM inbox_items WHERE %s = $1 AND state IN ('proposed', 'snoozed'))",
		column,
	)

	var found bool
	if err := tx.QueryRowContext(ctx, q, id).Scan(&found); err != nil {
		return false, fmt.Errorf("check active inbox item: %w", err)
	}
	return found, nil
}
