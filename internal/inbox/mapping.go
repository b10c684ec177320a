package inbox

import (
	"net/url"

	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/pkg/query"
	"github.com/JaimeStill/pulse/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "inbox_items", "n").
	Project("id", "ID").
	Project("item_type", "ItemType").
	Project("state", "State").
	Project("severity", "Severity").
	Project("issue_id", "IssueID").
	Project("signal_id", "SignalID").
	Project("title", "Title").
	Project("evidence", "Evidence").
	Project("suppression_key", "SuppressionKey").
	Project("proposed_at", "ProposedAt").
	Project("last_refreshed_at", "LastRefreshedAt").
	Project("resurfaced_at", "ResurfacedAt").
	Project("read_at", "ReadAt").
	Project("snooze_until", "SnoozeUntil").
	Project("snoozed_at", "SnoozedAt").
	Project("snoozed_by", "SnoozedBy").
	Project("dismissed_at", "DismissedAt").
	Project("dismissed_by", "DismissedBy").
	Project("dismiss_reason", "DismissReason").
	Project("resolved_at", "ResolvedAt").
	Project("resolution_reason", "ResolutionReason").
	Project("updated_at", "UpdatedAt").
	Join("public", "issues", "i", "LEFT JOIN", "n.issue_id = i.id").
	Project("severity", "IssueSeverity")

var defaultSort = query.SortField{
	Field:      "ProposedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for inbox queries.
type Filters struct {
	State    *string `json:"state,omitempty"`
	ItemType *string `json:"item_type,omitempty"`
	Unread   *bool   `json:"unread,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereEquals("State", f.State).
		WhereEquals("ItemType", f.ItemType)

	if f.Unread != nil {
		if *f.Unread {
			b.WhereIsNull("ReadAt")
		} else {
			b.WhereNotNull("ReadAt")
		}
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
// State validation happens in the handler.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("state"); s != "" {
		f.State = &s
	}

	if t := values.Get("item_type"); t != "" {
		f.ItemType = &t
	}

	if u := values.Get("unread"); u == "true" || u == "false" {
		v := u == "true"
		f.Unread = &v
	}

	return f
}

func scanItem(s repository.Scanner) (InboxItem, error) {
	var i InboxItem
	err := s.Scan(
		&i.ID,
		&i.ItemType,
		&i.State,
		&i.Severity,
		&i.IssueID,
		&i.SignalID,
		&i.Title,
		&i.Evidence,
		&i.SuppressionKey,
		&i.ProposedAt,
		&i.LastRefreshedAt,
		&i.ResurfacedAt,
		&i.ReadAt,
		&i.SnoozeUntil,
		&i.SnoozedAt,
		&i.SnoozedBy,
		&i.DismissedAt,
		&i.DismissedBy,
		&i.DismissReason,
		&i.ResolvedAt,
		&i.ResolutionReason,
		&i.UpdatedAt,
	)
	return i, err
}

// itemRow pairs an item with the joined issue severity used for display.
type itemRow struct {
	item          InboxItem
	issueSeverity *issues.Severity
}

func scanItemRow(s repository.Scanner) (itemRow, error) {
	var r itemRow
	err := s.Scan(
		&r.item.ID,
		&r.item.ItemType,
		&r.item.State,
		&r.item.Severity,
		&r.item.IssueID,
		&r.item.SignalID,
		&r.item.Title,
		&r.item.Evidence,
		&r.item.SuppressionKey,
		&r.item.ProposedAt,
		&r.item.LastRefreshedAt,
		&r.item.ResurfacedAt,
		&r.item.ReadAt,
		&r.item.SnoozeUntil,
		&r.item.SnoozedAt,
		&r.item.SnoozedBy,
		&r.item.DismissedAt,
		&r.item.DismissedBy,
		&r.item.DismissReason,
		&r.item.ResolvedAt,
		&r.item.ResolutionReason,
		&r.item.UpdatedAt,
		&r.issueSeverity,
	)
	return r, err
}

func (r itemRow) detail() ItemDetail {
	return ItemDetail{
		InboxItem:       r.item,
		DisplaySeverity: DisplaySeverity(r.item.Severity, r.issueSeverity),
		AllowedActions:  AllowedActions(r.item.ItemType, r.item.State),
	}
}
