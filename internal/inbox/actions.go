package inbox

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/engagements"
	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/internal/signals"
	"github.com/JaimeStill/pulse/internal/suppression"
	"github.com/JaimeStill/pulse/pkg/fault"
	"github.com/JaimeStill/pulse/pkg/repository"
)

// Resolution reasons recorded when an item terminalizes through a user
// action. Auto-archival reasons ("issue_snoozed" etc.) come from the issue
// package and name the transition that caused them.
const (
	resolutionTagged   = "tagged"
	resolutionAssigned = "assigned"
)

func (r *repo) apply(ctx context.Context, tx *sql.Tx, item *InboxItem, cmd ActionCommand, now string) error {
	switch cmd.Action {
	case ActionTag:
		return r.tag(ctx, tx, item, cmd, now)
	case ActionAssign:
		return r.assign(ctx, tx, item, cmd, now)
	case ActionSnooze:
		return r.snooze(ctx, tx, item, cmd, now)
	case ActionDismiss:
		return r.dismiss(ctx, tx, item, cmd, now)
	case ActionLink:
		return r.link(ctx, tx, item, cmd, now)
	case ActionCreate:
		return r.create(ctx, tx, item, cmd, now)
	case ActionSelect:
		return r.selectCandidate(ctx, tx, item, cmd, now)
	default:
		return fault.New(fault.InvalidParam, "unknown action %q", cmd.Action)
	}
}

// tag terminalizes the item and drives the wrapped issue to acknowledged.
func (r *repo) tag(ctx context.Context, tx *sql.Tx, item *InboxItem, cmd ActionCommand, now string) error {
	var p struct {
		Tag string `json:"tag"`
	}
	if err := decodeParams(cmd.Params, &p); err != nil {
		return err
	}
	if p.Tag == "" {
		return fault.New(fault.MissingParam, "tag requires tag")
	}

	issue, err := r.lockIssue(ctx, tx, item)
	if err != nil {
		return err
	}
	if !issues.ActionAllowed(issue.State, issue.Suppressed, issues.ActionAcknowledge) {
		return fault.New(fault.InvalidState, "issue in state %q cannot be acknowledged", issue.State)
	}

	if err := issues.TagTx(ctx, tx, issue.ID, p.Tag, now); err != nil {
		return err
	}

	if err := r.terminalizeLinked(ctx, tx, item.ID, resolutionTagged, now); err != nil {
		return err
	}

	return issues.TransitionTx(ctx, tx, r, issues.TransitionSpec{
		IssueID: issue.ID,
		Prev:    issue.State,
		Next:    issues.StateAcknowledged,
		Reason:  issues.ReasonUser,
		Actor:   cmd.Actor,
	}, now)
}

// assign terminalizes the item and drives the wrapped issue to addressing.
func (r *repo) assign(ctx context.Context, tx *sql.Tx, item *InboxItem, cmd ActionCommand, now string) error {
	var p struct {
		Assignee string `json:"assignee"`
	}
	if err := decodeParams(cmd.Params, &p); err != nil {
		return err
	}
	if p.Assignee == "" {
		return fault.New(fault.MissingParam, "assign requires assignee")
	}

	issue, err := r.lockIssue(ctx, tx, item)
	if err != nil {
		return err
	}
	if !issues.ActionAllowed(issue.State, issue.Suppressed, issues.ActionAssign) {
		return fault.New(fault.InvalidState, "issue in state %q cannot be assigned", issue.State)
	}

	if err := issues.AssignTx(ctx, tx, issue.ID, p.Assignee, now); err != nil {
		return err
	}

	if err := r.terminalizeLinked(ctx, tx, item.ID, resolutionAssigned, now); err != nil {
		return err
	}

	return issues.TransitionTx(ctx, tx, r, issues.TransitionSpec{
		IssueID: issue.ID,
		Prev:    issue.State,
		Next:    issues.StateAddressing,
		Reason:  issues.ReasonUser,
		Actor:   cmd.Actor,
	}, now)
}

// snooze parks the item until org-local midnight of today+days. The expiry
// instant is always server-computed; a client-supplied timestamp is an
// unexpected parameter by contract.
func (r *repo) snooze(ctx context.Context, tx *sql.Tx, item *InboxItem, cmd ActionCommand, now string) error {
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

	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE inbox_items
		SET state = 'snoozed', snooze_until = $2, snoozed_at = $3, snoozed_by = $4, updated_at = $3
		WHERE id = $1 AND state = 'proposed'`,
		item.ID, until, now, cmd.Actor,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

// dismiss terminalizes the item, records the suppression rule that blocks
// re-proposal, and suppresses or flags the underlying entity. All item audit
// fields land in one statement.
func (r *repo) dismiss(ctx context.Context, tx *sql.Tx, item *InboxItem, cmd ActionCommand, now string) error {
	var p struct {
		Reason string `json:"reason"`
	}
	if err := decodeParams(cmd.Params, &p); err != nil {
		return err
	}

	var (
		key     string
		issueID *uuid.UUID
	)

	switch {
	case item.IssueID != nil:
		issue, err := r.lockIssue(ctx, tx, item)
		if err != nil {
			return err
		}
		issueID = &issue.ID

		key, err = suppression.Key(suppression.ItemIssue, suppression.Scope{
			ClientID:             issue.ClientID,
			EngagementID:         issue.EngagementID,
			BrandID:              issue.BrandID,
			RootCauseFingerprint: issue.RootCauseFingerprint,
		})
		if err != nil {
			return err
		}

	case item.SignalID != nil:
		sig, err := signals.FindTx(ctx, tx, *item.SignalID)
		if err != nil {
			return err
		}

		key, err = suppression.Key(string(item.ItemType), suppression.Scope{
			ClientID:      sig.ClientID,
			EngagementID:  sig.EngagementID,
			BrandID:       sig.BrandID,
			RuleTriggered: sig.RuleTriggered,
		})
		if err != nil {
			return err
		}

	default:
		return fault.New(fault.InvalidState, "inbox item has no underlying entity")
	}

	expiry := r.rules.ExpiryFor(string(item.ItemType))
	rule := &suppression.Rule{
		SuppressionKey: key,
		ItemType:       string(item.ItemType),
		IssueID:        issueID,
		ExpiresAt:      &expiry,
		CreatedAt:      now,
		CreatedBy:      cmd.Actor,
	}
	if err := r.rules.UpsertRuleTx(ctx, tx, rule); err != nil {
		return err
	}

	var reason *string
	if p.Reason != "" {
		reason = &p.Reason
	}

	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE inbox_items
		SET state = 'dismissed', dismissed_at = $2, dismissed_by = $3, dismiss_reason = $4,
			suppression_key = $5, snooze_until = NULL, snoozed_at = NULL, snoozed_by = NULL,
			updated_at = $2
		WHERE id = $1 AND state IN ('proposed', 'snoozed')`,
		item.ID, now, cmd.Actor, reason, key,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if issueID != nil {
		// The item is already terminal, so the archive pass inside
		// SuppressTx finds nothing else to do for it.
		return issues.SuppressTx(ctx, tx, r, *issueID, now)
	}

	return signals.MarkDismissedTx(ctx, tx, *item.SignalID, true)
}

// link resolves an orphan to an existing engagement.
func (r *repo) link(ctx context.Context, tx *sql.Tx, item *InboxItem, cmd ActionCommand, now string) error {
	var p struct {
		EngagementID uuid.UUID `json:"engagement_id"`
	}
	if err := decodeParams(cmd.Params, &p); err != nil {
		return err
	}
	if p.EngagementID == uuid.Nil {
		return fault.New(fault.MissingParam, "link requires engagement_id")
	}

	sig, err := r.lockedSignal(ctx, tx, item)
	if err != nil {
		return err
	}

	ok, err := r.scopes.EngagementBelongs(ctx, p.EngagementID, sig.ClientID)
	if err != nil {
		return err
	}
	if !ok {
		return fault.New(fault.InvalidParam, "engagement %s does not belong to client", p.EngagementID)
	}

	return r.resolveToEngagement(ctx, tx, item, sig.ID, p.EngagementID, now)
}

// create resolves an orphan by creating a new engagement for its client.
func (r *repo) create(ctx context.Context, tx *sql.Tx, item *InboxItem, cmd ActionCommand, now string) error {
	var p struct {
		Name     string    `json:"name"`
		ClientID uuid.UUID `json:"client_id"`
	}
	if err := decodeParams(cmd.Params, &p); err != nil {
		return err
	}
	if p.Name == "" {
		return fault.New(fault.MissingParam, "create requires name")
	}
	if p.ClientID == uuid.Nil {
		return fault.New(fault.MissingParam, "create requires client_id")
	}

	sig, err := r.lockedSignal(ctx, tx, item)
	if err != nil {
		return err
	}
	if p.ClientID != sig.ClientID {
		return fault.New(fault.InvalidParam, "client_id does not match the signal's client")
	}

	engagementID, err := r.scopes.CreateTx(ctx, tx, p.ClientID, p.Name, cmd.Actor, now)
	if err != nil {
		return err
	}

	return r.resolveToEngagement(ctx, tx, item, sig.ID, engagementID, now)
}

// selectCandidate resolves an ambiguous item by picking one of the served
// candidates. Candidates outside the served list are rejected: the resolver
// ranked them once, and that ranking is the contract.
func (r *repo) selectCandidate(ctx context.Context, tx *sql.Tx, item *InboxItem, cmd ActionCommand, now string) error {
	var p struct {
		CandidateID uuid.UUID `json:"candidate_id"`
	}
	if err := decodeParams(cmd.Params, &p); err != nil {
		return err
	}
	if p.CandidateID == uuid.Nil {
		return fault.New(fault.MissingParam, "select requires candidate_id")
	}

	var evidence struct {
		Candidates []engagements.Candidate `json:"candidates"`
	}
	if len(item.Evidence) > 0 {
		if err := json.Unmarshal(item.Evidence, &evidence); err != nil {
			return fault.Wrap(fault.InvalidState, err, "item candidates are unreadable")
		}
	}

	served := false
	for _, c := range evidence.Candidates {
		if c.EngagementID == p.CandidateID {
			served = true
			break
		}
	}
	if !served {
		return fault.New(fault.InvalidParam, "candidate %s was not offered for this item", p.CandidateID)
	}

	sig, err := r.lockedSignal(ctx, tx, item)
	if err != nil {
		return err
	}

	return r.resolveToEngagement(ctx, tx, item, sig.ID, p.CandidateID, now)
}

// resolveToEngagement links the signal to the engagement and converts the
// item to flagged_signal, preserving the original type in evidence. The item
// keeps its current state: resolution answers "whose problem is this", not
// "is it handled".
func (r *repo) resolveToEngagement(ctx context.Context, tx *sql.Tx, item *InboxItem, signalID, engagementID uuid.UUID, now string) error {
	if err := signals.LinkEngagementTx(ctx, tx, signalID, engagementID); err != nil {
		return err
	}

	evidence := map[string]json.RawMessage{}
	if len(item.Evidence) > 0 {
		if err := json.Unmarshal(item.Evidence, &evidence); err != nil {
			return fault.Wrap(fault.InvalidState, err, "item evidence is unreadable")
		}
	}
	if _, ok := evidence["original_type"]; !ok {
		original, _ := json.Marshal(string(item.ItemType))
		evidence["original_type"] = original
	}
	linked, _ := json.Marshal(engagementID.String())
	evidence["resolved_engagement_id"] = linked

	merged, err := json.Marshal(evidence)
	if err != nil {
		return err
	}

	execErr := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE inbox_items
		SET item_type = 'flagged_signal', evidence = $2, last_refreshed_at = $3, updated_at = $3
		WHERE id = $1 AND state IN ('proposed', 'snoozed')`,
		item.ID, merged, now,
	)
	return repository.MapError(execErr, ErrNotFound, ErrDuplicate)
}

// terminalizeLinked moves an active item to linked_to_issue with its audit
// fields in one statement.
func (r *repo) terminalizeLinked(ctx context.Context, tx *sql.Tx, itemID uuid.UUID, resolution, now string) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE inbox_items
		SET state = 'linked_to_issue', resolved_at = $2, resolution_reason = $3,
			snooze_until = NULL, snoozed_at = NULL, snoozed_by = NULL, updated_at = $2
		WHERE id = $1 AND state IN ('proposed', 'snoozed')`,
		itemID, now, resolution,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) lockIssue(ctx context.Context, tx *sql.Tx, item *InboxItem) (*issues.Issue, error) {
	if item.IssueID == nil {
		return nil, fault.New(fault.InvalidState, "inbox item does not wrap an issue")
	}
	return issues.FindForUpdateTx(ctx, tx, *item.IssueID)
}

func (r *repo) lockedSignal(ctx context.Context, tx *sql.Tx, item *InboxItem) (*signals.Signal, error) {
	if item.SignalID == nil {
		return nil, fault.New(fault.InvalidState, "inbox item does not wrap a signal")
	}
	return signals.FindTx(ctx, tx, *item.SignalID)
}

// decodeParams enforces the exact payload contract for an action: unknown
// fields reject with unexpected_param, malformed JSON and type mismatches
// with invalid_param.
func decodeParams(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		var (
			syntax   *json.SyntaxError
			badValue *json.UnmarshalTypeError
		)
		switch {
		case errors.As(err, &syntax):
			return fault.Wrap(fault.InvalidParam, err, "malformed action parameters")
		case errors.As(err, &badValue):
			return fault.Wrap(fault.InvalidParam, err, "wrong type for parameter %q", badValue.Field)
		}
		return fault.Wrap(fault.UnexpectedParam, err, "unexpected action parameters")
	}

	return nil
}
