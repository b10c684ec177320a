// Package aggregation turns validated signals into issue lifecycle
// consequences: it computes the deterministic aggregation key for a signal,
// upserts the matching issue, resolves unscoped signals through the
// engagement resolver, and proposes new work to the inbox.
package aggregation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/internal/signals"
	"github.com/JaimeStill/pulse/pkg/fault"
)

// keyVersion is baked into every key payload so a future formula change
// cannot collide with keys already persisted.
const keyVersion = 1

// CategoryFor maps an evidence kind (and, for notes, sentiment) to an issue
// category. A signal with no category never creates an issue; at worst it
// becomes a flagged-signal proposal.
func CategoryFor(kind string, sentiment signals.Sentiment) (issues.Type, bool) {
	switch kind {
	case signals.KindInvoice:
		return issues.TypeFinancial, true
	case signals.KindMeeting, signals.KindTrackerItem:
		return issues.TypeSchedule, true
	case signals.KindThread:
		return issues.TypeCommunication, true
	case signals.KindNote:
		if sentiment == signals.SentimentBad {
			return issues.TypeRisk, true
		}
	}
	return "", false
}

// Key computes the aggregation key for a signal under its issue category:
// SHA-256 hex over the RFC 8785 canonical JSON of a versioned payload. The
// returned fingerprint is non-nil only when the signal has neither
// engagement nor brand scope and identity falls back to
// (client, root cause).
//
// Per-category formulas: financial issues key per invoice; schedule issues
// per engagement or brand; communication and risk issues additionally per
// triggering rule, so distinct rules track as distinct problems.
func Key(category issues.Type, sig *signals.Signal) (string, *string, error) {
	payload := map[string]any{
		"v":          keyVersion,
		"issue_type": string(category),
		"client_id":  sig.ClientID.String(),
	}

	var fingerprint *string

	switch {
	case sig.EngagementID != nil:
		payload["engagement_id"] = sig.EngagementID.String()
	case sig.BrandID != nil:
		payload["brand_id"] = sig.BrandID.String()
	default:
		fp := rootCauseFingerprint(sig)
		fingerprint = &fp
		payload["root_cause_fingerprint"] = fp
	}

	switch category {
	case issues.TypeFinancial:
		invoice, err := sig.Evidence.Invoice()
		if err != nil {
			return "", nil, fault.Wrap(fault.InvalidParam, err, "financial signal requires invoice evidence")
		}
		payload["invoice_source_id"] = invoice.InvoiceSourceID
	case issues.TypeCommunication, issues.TypeRisk:
		if sig.RuleTriggered != nil {
			payload["rule_triggered"] = *sig.RuleTriggered
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal aggregation payload: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", nil, fmt.Errorf("canonicalize aggregation payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), fingerprint, nil
}

// rootCauseFingerprint is the fallback identity for signals with no
// engagement or brand scope: the source plus the rule that flagged it.
func rootCauseFingerprint(sig *signals.Signal) string {
	rule := ""
	if sig.RuleTriggered != nil {
		rule = *sig.RuleTriggered
	}
	return sig.Source + ":" + rule
}
