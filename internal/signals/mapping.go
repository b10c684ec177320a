package signals

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/JaimeStill/pulse/pkg/query"
	"github.com/JaimeStill/pulse/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "signals", "s").
	Project("id", "ID").
	Project("source", "Source").
	Project("source_id", "SourceID").
	Project("sentiment", "Sentiment").
	Project("rule_triggered", "RuleTriggered").
	Project("client_id", "ClientID").
	Project("brand_id", "BrandID").
	Project("engagement_id", "EngagementID").
	Project("evidence", "Evidence").
	Project("dismissed", "Dismissed").
	Project("observed_at", "ObservedAt").
	Project("ingested_at", "IngestedAt")

var defaultSort = query.SortField{
	Field:      "ObservedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for signal queries.
// Nil fields are ignored; all matching is exact except the timestamp
// range bounds, which compare lexicographically on canonical strings.
type Filters struct {
	Source       *string `json:"source,omitempty"`
	Sentiment    *string `json:"sentiment,omitempty"`
	ClientID     *string `json:"client_id,omitempty"`
	EngagementID *string `json:"engagement_id,omitempty"`
	Dismissed    *bool   `json:"dismissed,omitempty"`
	ObservedFrom *string `json:"observed_from,omitempty"`
	ObservedTo   *string `json:"observed_to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Source", f.Source).
		WhereEquals("Sentiment", f.Sentiment).
		WhereEquals("ClientID", f.ClientID).
		WhereEquals("EngagementID", f.EngagementID).
		WhereEquals("Dismissed", f.Dismissed).
		WhereGTE("ObservedAt", f.ObservedFrom).
		WhereLTE("ObservedAt", f.ObservedTo)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("source"); s != "" {
		f.Source = &s
	}

	if s := values.Get("sentiment"); s != "" {
		f.Sentiment = &s
	}

	if c := values.Get("client_id"); c != "" {
		f.ClientID = &c
	}

	if e := values.Get("engagement_id"); e != "" {
		f.EngagementID = &e
	}

	if d := values.Get("dismissed"); d != "" {
		if v, err := strconv.ParseBool(d); err == nil {
			f.Dismissed = &v
		}
	}

	if from := values.Get("observed_from"); from != "" {
		f.ObservedFrom = &from
	}

	if to := values.Get("observed_to"); to != "" {
		f.ObservedTo = &to
	}

	return f
}

func scanSignal(s repository.Scanner) (Signal, error) {
	var (
		sig Signal
		raw []byte
	)

	err := s.Scan(
		&sig.ID,
		&sig.Source,
		&sig.SourceID,
		&sig.Sentiment,
		&sig.RuleTriggered,
		&sig.ClientID,
		&sig.BrandID,
		&sig.EngagementID,
		&raw,
		&sig.Dismissed,
		&sig.ObservedAt,
		&sig.IngestedAt,
	)
	if err != nil {
		return sig, err
	}

	if err := json.Unmarshal(raw, &sig.Evidence); err != nil {
		return sig, err
	}

	return sig, nil
}
