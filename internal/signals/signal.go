// Package signals implements the append-only observation store. A signal is
// one observation from one external source, deduplicated by
// (source, source_id) and immutable after creation except for its dismissed
// flag. The aggregation engine owns signals for issue-creation purposes.
package signals

import (
	"github.com/google/uuid"
)

// Sentiment classifies an observation's tone.
type Sentiment string

const (
	SentimentGood    Sentiment = "good"
	SentimentNeutral Sentiment = "neutral"
	SentimentBad     Sentiment = "bad"
)

// Valid reports whether s is a known sentiment value.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentGood, SentimentNeutral, SentimentBad:
		return true
	}
	return false
}

// Signal is one observation from an external source.
// ObservedAt is source-system time; IngestedAt is ours. Both canonical.
type Signal struct {
	ID            uuid.UUID  `json:"id"`
	Source        string     `json:"source"`
	SourceID      string     `json:"source_id"`
	Sentiment     Sentiment  `json:"sentiment"`
	RuleTriggered *string    `json:"rule_triggered"`
	ClientID      uuid.UUID  `json:"client_id"`
	BrandID       *uuid.UUID `json:"brand_id"`
	EngagementID  *uuid.UUID `json:"engagement_id"`
	Evidence      Evidence   `json:"evidence"`
	Dismissed     bool       `json:"dismissed"`
	ObservedAt    string     `json:"observed_at"`
	IngestedAt    string     `json:"ingested_at"`
}

// IngestCommand carries one observation submitted by a collector.
type IngestCommand struct {
	Source        string     `json:"source"`
	SourceID      string     `json:"source_id"`
	Sentiment     Sentiment  `json:"sentiment"`
	RuleTriggered *string    `json:"rule_triggered,omitempty"`
	ClientID      uuid.UUID  `json:"client_id"`
	BrandID       *uuid.UUID `json:"brand_id,omitempty"`
	EngagementID  *uuid.UUID `json:"engagement_id,omitempty"`
	Evidence      Evidence   `json:"evidence"`
	ObservedAt    string     `json:"observed_at"`
}

// IngestResult reports the stored signal and whether this call created it.
// Replayed observations return the existing row untouched.
type IngestResult struct {
	Signal  *Signal `json:"signal"`
	Created bool    `json:"created"`
}
