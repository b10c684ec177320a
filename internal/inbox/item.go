// Package inbox implements the proposal layer: a separate surface that
// wraps an issue or a raw signal in an item with its own four-state
// lifecycle. Acting on a proposal never corrupts the wrapped entity's own
// state machine; the two lifecycles meet only through the explicit action
// handlers here and the auto-archive hook the issue package calls.
package inbox

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/issues"
)

// ItemType classifies what an inbox item proposes. Orphan and ambiguous
// items convert to flagged_signal once their engagement is resolved; the
// original type is preserved in the item's evidence.
type ItemType string

const (
	TypeIssue         ItemType = "issue"
	TypeFlaggedSignal ItemType = "flagged_signal"
	TypeOrphan        ItemType = "orphan"
	TypeAmbiguous     ItemType = "ambiguous"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case TypeIssue, TypeFlaggedSignal, TypeOrphan, TypeAmbiguous:
		return true
	}
	return false
}

// State is the inbox item lifecycle. dismissed and linked_to_issue are
// terminal sinks.
type State string

const (
	StateProposed      State = "proposed"
	StateSnoozed       State = "snoozed"
	StateDismissed     State = "dismissed"
	StateLinkedToIssue State = "linked_to_issue"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateProposed, StateSnoozed, StateDismissed, StateLinkedToIssue:
		return true
	}
	return false
}

// Terminal reports whether s is a sink state.
func (s State) Terminal() bool {
	return s == StateDismissed || s == StateLinkedToIssue
}

// Action is one user operation on an inbox item.
type Action string

const (
	ActionTag     Action = "tag"
	ActionAssign  Action = "assign"
	ActionSnooze  Action = "snooze"
	ActionDismiss Action = "dismiss"
	ActionLink    Action = "link"
	ActionCreate  Action = "create"
	ActionSelect  Action = "select"
)

// InboxItem is one proposal. Exactly one of IssueID and SignalID is set.
// ProposedAt is immutable; ResurfacedAt is written only by the snooze-expiry
// sweep and never decreases. SuppressionKey is an audit copy of the key
// written at dismissal; the rules table remains authoritative.
type InboxItem struct {
	ID               uuid.UUID       `json:"id"`
	ItemType         ItemType        `json:"item_type"`
	State            State           `json:"state"`
	Severity         issues.Severity `json:"severity"`
	IssueID          *uuid.UUID      `json:"issue_id"`
	SignalID         *uuid.UUID      `json:"signal_id"`
	Title            string          `json:"title"`
	Evidence         json.RawMessage `json:"evidence"`
	SuppressionKey   *string         `json:"suppression_key"`
	ProposedAt       string          `json:"proposed_at"`
	LastRefreshedAt  string          `json:"last_refreshed_at"`
	ResurfacedAt     *string         `json:"resurfaced_at"`
	ReadAt           *string         `json:"read_at"`
	SnoozeUntil      *string         `json:"snooze_until"`
	SnoozedAt        *string         `json:"snoozed_at"`
	SnoozedBy        *string         `json:"snoozed_by"`
	DismissedAt      *string         `json:"dismissed_at"`
	DismissedBy      *string         `json:"dismissed_by"`
	DismissReason    *string         `json:"dismiss_reason"`
	ResolvedAt       *string         `json:"resolved_at"`
	ResolutionReason *string         `json:"resolution_reason"`
	UpdatedAt        string          `json:"updated_at"`
}

// ItemDetail is an item plus its server-computed action set and display
// severity (max of the snapshot and the underlying issue's current
// severity).
type ItemDetail struct {
	InboxItem
	DisplaySeverity issues.Severity `json:"display_severity"`
	AllowedActions  []Action        `json:"allowed_actions"`
}

// Counts are the global per-state totals plus the unread count. They are
// computed independently of any list filter.
type Counts struct {
	Proposed      int `json:"proposed"`
	Snoozed       int `json:"snoozed"`
	Dismissed     int `json:"dismissed"`
	LinkedToIssue int `json:"linked_to_issue"`
	Unread        int `json:"unread"`
}

// actionTable maps item type to the actions available while proposed.
// Snoozed items keep everything but snooze; terminal states allow nothing.
var actionTable = map[ItemType][]Action{
	TypeIssue:         {ActionTag, ActionAssign, ActionSnooze, ActionDismiss},
	TypeFlaggedSignal: {ActionSnooze, ActionDismiss},
	TypeOrphan:        {ActionLink, ActionCreate, ActionSnooze, ActionDismiss},
	TypeAmbiguous:     {ActionSelect, ActionSnooze, ActionDismiss},
}

// AllowedActions returns the actions permitted for an item in the given
// type and state.
func AllowedActions(itemType ItemType, state State) []Action {
	if state.Terminal() {
		return []Action{}
	}

	base := actionTable[itemType]
	out := make([]Action, 0, len(base))
	for _, a := range base {
		if state == StateSnoozed && a == ActionSnooze {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ActionAllowed reports whether the action is permitted for the item.
func ActionAllowed(itemType ItemType, state State, action Action) bool {
	for _, a := range AllowedActions(itemType, state) {
		if a == action {
			return true
		}
	}
	return false
}

// DisplaySeverity resolves the read-time severity for an item given the
// underlying issue's current severity (nil for signal-backed items).
func DisplaySeverity(snapshot issues.Severity, issueSeverity *issues.Severity) issues.Severity {
	if issueSeverity != nil && issueSeverity.Rank() > snapshot.Rank() {
		return *issueSeverity
	}
	return snapshot
}
