package suppression

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

// keyVersion is baked into every key payload so a future formula change
// cannot collide with keys already persisted.
const keyVersion = 1

// Scope carries the fields a suppression key may derive from. Precedence is
// engagement > brand > client + root-cause fingerprint: the most specific
// available scope wins and the rest is excluded from the key.
type Scope struct {
	ClientID             uuid.UUID
	EngagementID         *uuid.UUID
	BrandID              *uuid.UUID
	RootCauseFingerprint *string
	RuleTriggered        *string
}

// Key computes the deterministic suppression key for an item type and scope:
// SHA-256 hex over the RFC 8785 canonical JSON of a versioned payload.
// Identical logical input yields a byte-identical key in every process.
func Key(itemType string, scope Scope) (string, error) {
	payload := map[string]any{
		"v":         keyVersion,
		"item_type": itemType,
	}

	switch {
	case scope.EngagementID != nil:
		payload["engagement_id"] = scope.EngagementID.String()
	case scope.BrandID != nil:
		payload["brand_id"] = scope.BrandID.String()
	default:
		payload["client_id"] = scope.ClientID.String()
		if scope.RootCauseFingerprint != nil {
			payload["root_cause_fingerprint"] = *scope.RootCauseFingerprint
		}
	}

	// Non-issue items suppress per triggering rule: dismissing one mail
	// rule's noise must not silence a different rule on the same scope.
	if itemType != ItemIssue && scope.RuleTriggered != nil {
		payload["rule_triggered"] = *scope.RuleTriggered
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal suppression payload: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize suppression payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
