// Package suppression implements the dedup engine that blocks re-proposing
// dismissed problems. The rules table is the single source of truth: every
// proposal attempt consults it, never the audit copy stored on an inbox
// item. Expiry is soft (deleted_at) so the audit trail survives.
package suppression

import (
	"github.com/google/uuid"
)

// Item types a suppression rule can cover. These mirror the inbox item
// types; plain strings here keep the package free of inbox imports.
const (
	ItemIssue         = "issue"
	ItemFlaggedSignal = "flagged_signal"
	ItemOrphan        = "orphan"
	ItemAmbiguous     = "ambiguous"
)

// Rule is one authoritative dedup record. A nil ExpiresAt means permanent;
// a set IssueID enables deterministic auto-unsuppress when the rule expires.
type Rule struct {
	ID             uuid.UUID  `json:"id"`
	SuppressionKey string     `json:"suppression_key"`
	ItemType       string     `json:"item_type"`
	IssueID        *uuid.UUID `json:"issue_id"`
	ExpiresAt      *string    `json:"expires_at"`
	CreatedAt      string     `json:"created_at"`
	CreatedBy      string     `json:"created_by"`
	DeletedAt      *string    `json:"deleted_at"`
}

// Active reports whether the rule currently blocks proposals.
func (r *Rule) Active(now string) bool {
	if r.DeletedAt != nil {
		return false
	}
	if r.ExpiresAt == nil {
		return true
	}
	return *r.ExpiresAt > now
}
