package suppression

import (
	"net/url"

	"github.com/JaimeStill/pulse/pkg/query"
	"github.com/JaimeStill/pulse/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "suppression_rules", "r").
	Project("id", "ID").
	Project("suppression_key", "SuppressionKey").
	Project("item_type", "ItemType").
	Project("issue_id", "IssueID").
	Project("expires_at", "ExpiresAt").
	Project("created_at", "CreatedAt").
	Project("created_by", "CreatedBy").
	Project("deleted_at", "DeletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for suppression rule queries.
type Filters struct {
	ItemType   *string `json:"item_type,omitempty"`
	IssueID    *string `json:"issue_id,omitempty"`
	ActiveOnly bool    `json:"active_only,omitempty"`
}

// Apply adds filter conditions to a query builder. ActiveOnly needs the
// current time, so the repository applies it separately.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ItemType", f.ItemType).
		WhereEquals("IssueID", f.IssueID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("item_type"); t != "" {
		f.ItemType = &t
	}

	if i := values.Get("issue_id"); i != "" {
		f.IssueID = &i
	}

	f.ActiveOnly = values.Get("active") == "true"

	return f
}

func scanRule(s repository.Scanner) (Rule, error) {
	var r Rule
	err := s.Scan(
		&r.ID,
		&r.SuppressionKey,
		&r.ItemType,
		&r.IssueID,
		&r.ExpiresAt,
		&r.CreatedAt,
		&r.CreatedBy,
		&r.DeletedAt,
	)
	return r, err
}
