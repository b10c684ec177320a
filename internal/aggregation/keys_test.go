package aggregation

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/internal/signals"
)

func ptr[T any](v T) *T {
	return &v
}

func invoiceSignal(invoiceID string) *signals.Signal {
	payload, _ := json.Marshal(signals.InvoicePayload{
		InvoiceSourceID: invoiceID,
		AmountCents:     250_000,
		DueOn:           "2026-08-01",
	})
	return &signals.Signal{
		ID:        uuid.New(),
		Source:    "billing",
		SourceID:  "inv-" + invoiceID,
		Sentiment: signals.SentimentNeutral,
		ClientID:  uuid.MustParse("7d9f3f1a-1f2b-4c3d-9e8f-0a1b2c3d4e5f"),
		Evidence: signals.Evidence{
			Kind:         signals.KindInvoice,
			SourceSystem: "billing",
			DisplayText:  "Invoice " + invoiceID + " overdue",
			Payload:      payload,
		},
	}
}

func TestCategoryFor(t *testing.T) {
	cases := []struct {
		kind      string
		sentiment signals.Sentiment
		want      issues.Type
		ok        bool
	}{
		{signals.KindInvoice, signals.SentimentNeutral, issues.TypeFinancial, true},
		{signals.KindMeeting, signals.SentimentGood, issues.TypeSchedule, true},
		{signals.KindTrackerItem, signals.SentimentBad, issues.TypeSchedule, true},
		{signals.KindThread, signals.SentimentNeutral, issues.TypeCommunication, true},
		{signals.KindNote, signals.SentimentBad, issues.TypeRisk, true},
		{signals.KindNote, signals.SentimentNeutral, "", false},
		{signals.KindNote, signals.SentimentGood, "", false},
	}

	for _, tc := range cases {
		got, ok := CategoryFor(tc.kind, tc.sentiment)
		if ok != tc.ok || got != tc.want {
			t.Errorf("CategoryFor(%s, %s) = (%s, %v), want (%s, %v)",
				tc.kind, tc.sentiment, got, ok, tc.want, tc.ok)
		}
	}
}

func TestKeyDeterministic(t *testing.T) {
	sig := invoiceSignal("INV-100")
	sig.EngagementID = ptr(uuid.New())

	first, fp, err := Key(issues.TypeFinancial, sig)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if fp != nil {
		t.Error("engagement-scoped signal should not produce a fingerprint")
	}
	if len(first) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(first))
	}

	second, _, err := Key(issues.TypeFinancial, sig)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if first != second {
		t.Error("identical inputs must produce identical keys")
	}
}

func TestFinancialKeyPerInvoice(t *testing.T) {
	engagement := uuid.New()

	a := invoiceSignal("INV-100")
	a.EngagementID = &engagement
	b := invoiceSignal("INV-200")
	b.EngagementID = &engagement

	keyA, _, _ := Key(issues.TypeFinancial, a)
	keyB, _, _ := Key(issues.TypeFinancial, b)

	if keyA == keyB {
		t.Error("different invoices on one engagement must track as different issues")
	}
}

func TestCommunicationKeyPerRule(t *testing.T) {
	base := func(rule *string) *signals.Signal {
		payload, _ := json.Marshal(signals.ThreadPayload{
			ThreadSourceID: "t-1",
			LastMessageAt:  "2026-08-20T10:00:00.000Z",
		})
		return &signals.Signal{
			ClientID:      uuid.MustParse("7d9f3f1a-1f2b-4c3d-9e8f-0a1b2c3d4e5f"),
			EngagementID:  ptr(uuid.MustParse("0f8e7d6c-5b4a-3928-1706-f5e4d3c2b1a0")),
			RuleTriggered: rule,
			Evidence: signals.Evidence{
				Kind:         signals.KindThread,
				SourceSystem: "mail",
				DisplayText:  "Thread gone quiet",
				Payload:      payload,
			},
		}
	}

	keyA, _, _ := Key(issues.TypeCommunication, base(ptr("no_reply_7d")))
	keyB, _, _ := Key(issues.TypeCommunication, base(ptr("negative_tone")))
	keyC, _, _ := Key(issues.TypeCommunication, base(ptr("no_reply_7d")))

	if keyA == keyB {
		t.Error("distinct rules must key distinct communication issues")
	}
	if keyA != keyC {
		t.Error("same rule must reproduce the same key")
	}
}

func TestKeyScopePrecedence(t *testing.T) {
	sig := invoiceSignal("INV-100")
	sig.BrandID = ptr(uuid.New())

	brandKey, fp, err := Key(issues.TypeFinancial, sig)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if fp != nil {
		t.Error("brand-scoped signal should not produce a fingerprint")
	}

	sig.EngagementID = ptr(uuid.New())
	engagementKey, _, err := Key(issues.TypeFinancial, sig)
	if err != nil {
		t.Fatalf("key: %v", err)
	}

	if brandKey == engagementKey {
		t.Error("engagement scope must shadow brand scope in the key")
	}
}

func TestKeyFingerprintFallback(t *testing.T) {
	payload, _ := json.Marshal(signals.NotePayload{Text: "client unhappy"})
	sig := &signals.Signal{
		Source:        "crm",
		Sentiment:     signals.SentimentBad,
		RuleTriggered: ptr("negative_note"),
		ClientID:      uuid.New(),
		Evidence: signals.Evidence{
			Kind:         signals.KindNote,
			SourceSystem: "crm",
			DisplayText:  "client unhappy",
			Payload:      payload,
		},
	}

	_, fp, err := Key(issues.TypeRisk, sig)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if fp == nil {
		t.Fatal("client-only scope must fall back to a root cause fingerprint")
	}
	if *fp != "crm:negative_note" {
		t.Errorf("fingerprint = %q, want source:rule", *fp)
	}
}

func TestFinancialKeyRequiresInvoiceEvidence(t *testing.T) {
	payload, _ := json.Marshal(signals.NotePayload{Text: "not an invoice"})
	sig := &signals.Signal{
		ClientID:     uuid.New(),
		EngagementID: ptr(uuid.New()),
		Evidence: signals.Evidence{
			Kind:         signals.KindNote,
			SourceSystem: "crm",
			DisplayText:  "not an invoice",
			Payload:      payload,
		},
	}

	if _, _, err := Key(issues.TypeFinancial, sig); err == nil {
		t.Error("financial key without invoice evidence should fail")
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if err := c.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if c.AutoLinkConfidence != 0.85 {
		t.Errorf("auto_link_confidence = %v, want 0.85", c.AutoLinkConfidence)
	}
	if c.ProposeConfidence >= c.AutoLinkConfidence {
		t.Error("propose threshold must sit below auto-link threshold")
	}
	if c.CandidateLimit != 5 || c.SeverityWindowDays != 14 {
		t.Errorf("unexpected defaults: %+v", c)
	}
}
