package issues

import (
	"net/url"

	"github.com/JaimeStill/pulse/pkg/query"
	"github.com/JaimeStill/pulse/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "issues", "i").
	Project("id", "ID").
	Project("issue_type", "IssueType").
	Project("state", "State").
	Project("severity", "Severity").
	Project("severity_source", "SeveritySource").
	Project("aggregation_key", "AggregationKey").
	Project("client_id", "ClientID").
	Project("brand_id", "BrandID").
	Project("engagement_id", "EngagementID").
	Project("root_cause_fingerprint", "RootCauseFingerprint").
	Project("summary", "Summary").
	Project("signal_count", "SignalCount").
	Project("last_signal_at", "LastSignalAt").
	Project("suppressed", "Suppressed").
	Project("escalated", "Escalated").
	Project("tag", "Tag").
	Project("assigned_to", "AssignedTo").
	Project("snooze_until", "SnoozeUntil").
	Project("snoozed_from", "SnoozedFrom").
	Project("regression_watch_until", "RegressionWatchUntil").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for issue queries.
// Nil fields are ignored; all matching is exact.
type Filters struct {
	State      *string `json:"state,omitempty"`
	IssueType  *string `json:"issue_type,omitempty"`
	Severity   *string `json:"severity,omitempty"`
	ClientID   *string `json:"client_id,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	Suppressed *bool   `json:"suppressed,omitempty"`
	Escalated  *bool   `json:"escalated,omitempty"`
}

// Apply adds filter conditions to a query builder. When no state filter is
// present, detected issues are excluded: they are not yet user-visible.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	if f.State == nil {
		b.WhereNotEquals("State", string(StateDetected))
	} else {
		b.WhereEquals("State", f.State)
	}

	return b.
		WhereEquals("IssueType", f.IssueType).
		WhereEquals("Severity", f.Severity).
		WhereEquals("ClientID", f.ClientID).
		WhereEquals("AssignedTo", f.AssignedTo).
		WhereEquals("Suppressed", f.Suppressed).
		WhereEquals("Escalated", f.Escalated)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// State validation happens in the handler, not here.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("state"); s != "" {
		f.State = &s
	}

	if t := values.Get("issue_type"); t != "" {
		f.IssueType = &t
	}

	if s := values.Get("severity"); s != "" {
		f.Severity = &s
	}

	if c := values.Get("client_id"); c != "" {
		f.ClientID = &c
	}

	if a := values.Get("assigned_to"); a != "" {
		f.AssignedTo = &a
	}

	if s := values.Get("suppressed"); s == "true" || s == "false" {
		v := s == "true"
		f.Suppressed = &v
	}

	if e := values.Get("escalated"); e == "true" || e == "false" {
		v := e == "true"
		f.Escalated = &v
	}

	return f
}

func scanIssue(s repository.Scanner) (Issue, error) {
	var i Issue
	err := s.Scan(
		&i.ID,
		&i.IssueType,
		&i.State,
		&i.Severity,
		&i.SeveritySource,
		&i.AggregationKey,
		&i.ClientID,
		&i.BrandID,
		&i.EngagementID,
		&i.RootCauseFingerprint,
		&i.Summary,
		&i.SignalCount,
		&i.LastSignalAt,
		&i.Suppressed,
		&i.Escalated,
		&i.Tag,
		&i.AssignedTo,
		&i.SnoozeUntil,
		&i.SnoozedFrom,
		&i.RegressionWatchUntil,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanTransition(s repository.Scanner) (Transition, error) {
	var t Transition
	err := s.Scan(
		&t.ID,
		&t.IssueID,
		&t.PrevState,
		&t.NewState,
		&t.Reason,
		&t.TriggerSignalID,
		&t.TriggerRule,
		&t.Actor,
		&t.CreatedAt,
	)
	return t, err
}
