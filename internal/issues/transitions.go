package issues

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/pkg/fault"
	"github.com/JaimeStill/pulse/pkg/repository"
)

// Archiver terminalizes any active proposal wrapping an issue. Implemented
// by the inbox layer; the resolution string names the issue transition that
// caused the archival.
type Archiver interface {
	ArchiveForIssueTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, resolution, now string) error
}

// TransitionSpec describes one state change to record and apply.
type TransitionSpec struct {
	IssueID         uuid.UUID
	Prev            State
	Next            State
	Reason          Reason
	Actor           string
	TriggerSignalID *uuid.UUID
	TriggerRule     *string
}

const issueColumns = `id, issue_type, state, severity, severity_source, aggregation_key,
	client_id, brand_id, engagement_id, root_cause_fingerprint, summary,
	signal_count, last_signal_at, suppressed, escalated, tag, assigned_to,
	snooze_until, snoozed_from, regression_watch_until, created_at, updated_at`

// FindForUpdateTx loads an issue under a row lock.
func FindForUpdateTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*Issue, error) {
	q := fmt.Sprintf("SELECT %s FROM issues WHERE id = $1 FOR UPDATE", issueColumns)

	issue, err := repository.QueryOne(ctx, tx, q, []any{id}, scanIssue)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &issue, nil
}

// FindActiveByKeyTx locks and returns the live issue for an aggregation key,
// or nil when no non-suppressed, non-closed issue matches. Suppressed and
// closed rows are invisible to aggregation: a recurrence after closure is a
// fresh issue.
func FindActiveByKeyTx(ctx context.Context, tx *sql.Tx, t Type, key string) (*Issue, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM issues
		WHERE issue_type = $1 AND aggregation_key = $2
			AND NOT suppressed AND state <> 'closed'
		FOR UPDATE`, issueColumns)

	issue, err := repository.QueryOne(ctx, tx, q, []any{t, key}, scanIssue)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup issue by aggregation key: %w", err)
	}

	return &issue, nil
}

// InsertDetectedTx creates a new issue in the detected state. The partial
// unique index on (issue_type, aggregation_key) turns a racing insert into a
// unique violation the caller degrades to the update path.
func InsertDetectedTx(ctx context.Context, tx *sql.Tx, issue *Issue) error {
	if issue.EngagementID == nil && issue.BrandID == nil && issue.RootCauseFingerprint == nil {
		return fault.New(fault.InvalidParam, "issue requires engagement, brand, or root cause fingerprint scope")
	}

	q := `
		INSERT INTO issues(id, issue_type, state, severity, severity_source, aggregation_key,
			client_id, brand_id, engagement_id, root_cause_fingerprint, summary,
			signal_count, last_signal_at, suppressed, escalated, created_at, updated_at)
		VALUES ($1, $2, 'detected', $3, 'system', $4, $5, $6, $7, $8, $9, $10, $11, false, false, $12, $12)`

	_, err := tx.ExecContext(ctx, q,
		issue.ID,
		issue.IssueType,
		issue.Severity,
		issue.AggregationKey,
		issue.ClientID,
		issue.BrandID,
		issue.EngagementID,
		issue.RootCauseFingerprint,
		issue.Summary,
		issue.SignalCount,
		issue.LastSignalAt,
		issue.CreatedAt,
	)
	return err
}

// LinkSignalTx appends a signal reference to an issue. Re-linking the same
// signal is a no-op.
func LinkSignalTx(ctx context.Context, tx *sql.Tx, issueID, signalID uuid.UUID, now string) error {
	q := `
		INSERT INTO issue_signals(issue_id, signal_id, linked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (issue_id, signal_id) DO NOTHING`

	_, err := tx.ExecContext(ctx, q, issueID, signalID, now)
	return err
}

// RefreshOnSignalTx merges a repeat observation into an existing issue:
// signal count, freshest signal time, summary, and an escalate-only severity
// update.
func RefreshOnSignalTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, severity Severity, summary, lastSignalAt, now string) error {
	q := `
		UPDATE issues
		SET signal_count = signal_count + 1,
			last_signal_at = GREATEST(last_signal_at, $2),
			severity = $3,
			summary = $4,
			updated_at = $5
		WHERE id = $1`

	return repository.ExecExpectOne(ctx, tx, q, issueID, lastSignalAt, severity, summary, now)
}

// TagTx records a user tag on an issue.
func TagTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, tag, now string) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		"UPDATE issues SET tag = $2, updated_at = $3 WHERE id = $1",
		issueID, tag, now,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

// AssignTx records the assignee on an issue.
func AssignTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, assignee, now string) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		"UPDATE issues SET assigned_to = $2, updated_at = $3 WHERE id = $1",
		issueID, assignee, now,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

// TransitionTx logs and applies one state change atomically. Transitions
// into non-actionable states archive the issue's active proposal in the same
// transaction.
func TransitionTx(ctx context.Context, tx *sql.Tx, archiver Archiver, spec TransitionSpec, now string) error {
	if !spec.Next.Persistable() {
		return fault.New(fault.InvalidState, "state %q cannot be persisted", spec.Next)
	}

	if err := logTransitionTx(ctx, tx, spec, now); err != nil {
		return err
	}

	err := repository.ExecExpectOne(
		ctx, tx,
		transitionUpdate(spec.Prev),
		spec.IssueID, spec.Prev, spec.Next, now,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if !Actionable(spec.Next, false) {
		return archiveFor(ctx, tx, archiver, spec.IssueID, "issue_"+string(spec.Next), now)
	}

	return nil
}

// transitionUpdate selects the UPDATE statement for a transition out of prev.
// Leaving regression_watch clears the watch window: regression_watch_until is
// set iff the state is regression_watch.
func transitionUpdate(prev State) string {
	if prev == StateRegressionWatch {
		return `UPDATE issues
			SET state = $3, regression_watch_until = NULL, updated_at = $4
			WHERE id = $1 AND state = $2`
	}
	return "UPDATE issues SET state = $3, updated_at = $4 WHERE id = $1 AND state = $2"
}

// ResolveTx performs the resolve transition: both audit entries (into and
// out of the transient resolved state) are logged, but only regression_watch
// is ever persisted. An aborted transaction leaves the prior state intact.
func ResolveTx(ctx context.Context, tx *sql.Tx, archiver Archiver, issueID uuid.UUID, prev State, actor, watchUntil, now string) error {
	entries := []TransitionSpec{
		{IssueID: issueID, Prev: prev, Next: StateResolved, Reason: ReasonUser, Actor: actor},
		{IssueID: issueID, Prev: StateResolved, Next: StateRegressionWatch, Reason: ReasonUser, Actor: actor},
	}

	for _, spec := range entries {
		if err := logTransitionTx(ctx, tx, spec, now); err != nil {
			return err
		}
	}

	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE issues
		SET state = 'regression_watch', regression_watch_until = $3, updated_at = $4
		WHERE id = $1 AND state = $2`,
		issueID, prev, watchUntil, now,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return archiveFor(ctx, tx, archiver, issueID, "issue_resolved", now)
}

// RegressTx reopens an issue whose regression watch caught a recurrence:
// the watch window clears and the issue becomes actionable again. The prior
// proposal is terminal, so the caller spawns a fresh one.
func RegressTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, triggerSignalID *uuid.UUID, now string) error {
	spec := TransitionSpec{
		IssueID:         issueID,
		Prev:            StateRegressionWatch,
		Next:            StateRegressed,
		Reason:          ReasonSystemSignal,
		Actor:           "system",
		TriggerSignalID: triggerSignalID,
	}
	if err := logTransitionTx(ctx, tx, spec, now); err != nil {
		return err
	}

	err := repository.ExecExpectOne(
		ctx, tx,
		transitionUpdate(StateRegressionWatch),
		issueID, StateRegressionWatch, StateRegressed, now,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

// SnoozeTx moves an issue to snoozed, recording the state to restore on
// expiry, and archives the active proposal.
func SnoozeTx(ctx context.Context, tx *sql.Tx, archiver Archiver, issueID uuid.UUID, from State, actor, until, now string) error {
	spec := TransitionSpec{IssueID: issueID, Prev: from, Next: StateSnoozed, Reason: ReasonUser, Actor: actor}
	if err := logTransitionTx(ctx, tx, spec, now); err != nil {
		return err
	}

	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE issues
		SET state = 'snoozed', snooze_until = $3, snoozed_from = $2, updated_at = $4
		WHERE id = $1 AND state = $2`,
		issueID, from, until, now,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return archiveFor(ctx, tx, archiver, issueID, "issue_snoozed", now)
}

// RestoreFromSnoozeTx returns a snoozed issue to its pre-snooze state and
// clears the snooze fields. Both user unsnooze and timer expiry use it.
func RestoreFromSnoozeTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, to State, reason Reason, actor, now string) error {
	spec := TransitionSpec{IssueID: issueID, Prev: StateSnoozed, Next: to, Reason: reason, Actor: actor}
	if err := logTransitionTx(ctx, tx, spec, now); err != nil {
		return err
	}

	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE issues
		SET state = $2, snooze_until = NULL, snoozed_from = NULL, updated_at = $3
		WHERE id = $1 AND state = 'snoozed'`,
		issueID, to, now,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

// SuppressTx sets the suppressed flag and archives the active proposal.
// The suppression rule row, inserted by the caller, is the audit record.
func SuppressTx(ctx context.Context, tx *sql.Tx, archiver Archiver, issueID uuid.UUID, now string) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		"UPDATE issues SET suppressed = true, updated_at = $2 WHERE id = $1 AND NOT suppressed",
		issueID, now,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return archiveFor(ctx, tx, archiver, issueID, "issue_suppressed", now)
}

// UnsuppressIssueTx clears the suppressed flag. Used by the user unsuppress
// action and by the suppression reconciliation sweep.
func UnsuppressIssueTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, now string) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		"UPDATE issues SET suppressed = false, updated_at = $2 WHERE id = $1 AND suppressed",
		issueID, now,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func logTransitionTx(ctx context.Context, tx *sql.Tx, spec TransitionSpec, now string) error {
	q := `
		INSERT INTO issue_transitions(id, issue_id, prev_state, new_state, reason, trigger_signal_id, trigger_rule, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.ExecContext(ctx, q,
		uuid.New(),
		spec.IssueID,
		spec.Prev,
		spec.Next,
		spec.Reason,
		spec.TriggerSignalID,
		spec.TriggerRule,
		spec.Actor,
		now,
	)
	if err != nil {
		return fmt.Errorf("log issue transition: %w", err)
	}
	return nil
}

func archiveFor(ctx context.Context, tx *sql.Tx, archiver Archiver, issueID uuid.UUID, resolution, now string) error {
	if archiver == nil {
		return nil
	}
	return archiver.ArchiveForIssueTx(ctx, tx, issueID, resolution, now)
}
