// Package issues implements the lifecycle of tracked problems. An issue is
// the deduplicated, stateful record derived from one or more signals; it is
// closed, never deleted. All state changes flow through the transition
// helpers in this package so the allow-table, the audit log, and proposal
// auto-archival can never disagree.
package issues

import (
	"github.com/google/uuid"
)

// Type is the issue category. Each category has its own aggregation-key
// formula and severity table.
type Type string

const (
	TypeFinancial     Type = "financial"
	TypeSchedule      Type = "schedule"
	TypeCommunication Type = "communication"
	TypeRisk          Type = "risk"
)

// Valid reports whether t is a known issue type.
func (t Type) Valid() bool {
	switch t {
	case TypeFinancial, TypeSchedule, TypeCommunication, TypeRisk:
		return true
	}
	return false
}

// State is the issue lifecycle state. StateResolved is transient: it appears
// in transition log entries but is never persisted on an issue row and never
// returned from the API.
type State string

const (
	StateDetected           State = "detected"
	StateSurfaced           State = "surfaced"
	StateAcknowledged       State = "acknowledged"
	StateSnoozed            State = "snoozed"
	StateAddressing         State = "addressing"
	StateAwaitingResolution State = "awaiting_resolution"
	StateResolved           State = "resolved"
	StateRegressionWatch    State = "regression_watch"
	StateRegressed          State = "regressed"
	StateClosed             State = "closed"
)

// Persistable reports whether s may be stored in an issue row.
func (s State) Persistable() bool {
	switch s {
	case StateDetected, StateSurfaced, StateAcknowledged, StateSnoozed,
		StateAddressing, StateAwaitingResolution, StateRegressionWatch,
		StateRegressed, StateClosed:
		return true
	}
	return false
}

// Severity levels, ordered. Rank gives the ordering for escalate-only merges.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the severity's position in the escalation order, 0 for low.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityModerate:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// SeveritySource records whether severity was last set by the system or a
// user. User-set severity is sticky: automatic recomputation never overrides
// it.
type SeveritySource string

const (
	SeveritySystem SeveritySource = "system"
	SeverityUser   SeveritySource = "user"
)

// Action is a user- or system-initiated operation on an issue.
type Action string

const (
	ActionAcknowledge Action = "acknowledge"
	ActionAssign      Action = "assign"
	ActionSnooze      Action = "snooze"
	ActionUnsnooze    Action = "unsnooze"
	ActionAwait       Action = "await"
	ActionResolve     Action = "resolve"
	ActionEscalate    Action = "escalate"
	ActionUnsuppress  Action = "unsuppress"
)

// Reason attributes a transition to its cause in the audit log.
type Reason string

const (
	ReasonUser              Reason = "user"
	ReasonSystemTimer       Reason = "system_timer"
	ReasonSystemSignal      Reason = "system_signal"
	ReasonSystemThreshold   Reason = "system_threshold"
	ReasonSystemAggregation Reason = "system_aggregation"
	ReasonSystemWorkflow    Reason = "system_workflow"
)

// Issue is a tracked problem. At least one of EngagementID, BrandID, or
// RootCauseFingerprint is always set; the aggregation key is unique among
// non-suppressed, non-closed issues of a type.
type Issue struct {
	ID                   uuid.UUID      `json:"id"`
	IssueType            Type           `json:"issue_type"`
	State                State          `json:"state"`
	Severity             Severity       `json:"severity"`
	SeveritySource       SeveritySource `json:"severity_source"`
	AggregationKey       string         `json:"aggregation_key"`
	ClientID             uuid.UUID      `json:"client_id"`
	BrandID              *uuid.UUID     `json:"brand_id"`
	EngagementID         *uuid.UUID     `json:"engagement_id"`
	RootCauseFingerprint *string        `json:"root_cause_fingerprint"`
	Summary              string         `json:"summary"`
	SignalCount          int            `json:"signal_count"`
	LastSignalAt         string         `json:"last_signal_at"`
	Suppressed           bool           `json:"suppressed"`
	Escalated            bool           `json:"escalated"`
	Tag                  *string        `json:"tag"`
	AssignedTo           *string        `json:"assigned_to"`
	SnoozeUntil          *string        `json:"snooze_until"`
	SnoozedFrom          *State         `json:"snoozed_from"`
	RegressionWatchUntil *string        `json:"regression_watch_until"`
	CreatedAt            string         `json:"created_at"`
	UpdatedAt            string         `json:"updated_at"`
}

// Transition is one append-only audit entry for an issue state change.
type Transition struct {
	ID              uuid.UUID  `json:"id"`
	IssueID         uuid.UUID  `json:"issue_id"`
	PrevState       State      `json:"prev_state"`
	NewState        State      `json:"new_state"`
	Reason          Reason     `json:"reason"`
	TriggerSignalID *uuid.UUID `json:"trigger_signal_id"`
	TriggerRule     *string    `json:"trigger_rule"`
	Actor           string     `json:"actor"`
	CreatedAt       string     `json:"created_at"`
}
