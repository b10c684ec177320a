package signals

import (
	"encoding/json"
	"testing"

	"github.com/JaimeStill/pulse/pkg/fault"
)

func validEvidence(kind string, payload string) Evidence {
	return Evidence{
		Kind:         kind,
		SourceSystem: "billing",
		DisplayText:  "Invoice 42 overdue",
		Payload:      json.RawMessage(payload),
	}
}

func TestEvidenceValidateAcceptsKnownKinds(t *testing.T) {
	cases := []struct {
		kind    string
		payload string
	}{
		{KindInvoice, `{"invoice_source_id":"inv-42","amount_cents":125000,"due_on":"2026-08-01"}`},
		{KindThread, `{"thread_source_id":"t-9","last_message_at":"2026-08-29T10:00:00.000Z","participants":["a@x.com"]}`},
		{KindMeeting, `{"event_source_id":"ev-1","scheduled_for":"2026-09-01T14:00:00.000Z","attendees":[]}`},
		{KindTrackerItem, `{"item_source_id":"PROJ-7","status":"blocked"}`},
		{KindNote, `{"text":"client unhappy with cadence"}`},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			e := validEvidence(tc.kind, tc.payload)
			if err := e.Validate(); err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestEvidenceValidateRejections(t *testing.T) {
	cases := []struct {
		name     string
		evidence Evidence
		code     fault.Code
	}{
		{
			"unknown kind",
			validEvidence("webhook", `{"x":1}`),
			fault.InvalidParam,
		},
		{
			"missing kind",
			validEvidence("", `{"text":"hi"}`),
			fault.MissingParam,
		},
		{
			"invoice without source id",
			validEvidence(KindInvoice, `{"amount_cents":100,"due_on":"2026-08-01"}`),
			fault.MissingParam,
		},
		{
			"invoice negative amount",
			validEvidence(KindInvoice, `{"invoice_source_id":"inv-1","amount_cents":-5,"due_on":"2026-08-01"}`),
			fault.InvalidParam,
		},
		{
			"invoice bad due date",
			validEvidence(KindInvoice, `{"invoice_source_id":"inv-1","amount_cents":5,"due_on":"08/01/2026"}`),
			fault.InvalidParam,
		},
		{
			"thread non-canonical timestamp",
			validEvidence(KindThread, `{"thread_source_id":"t-1","last_message_at":"2026-08-29T10:00:00Z"}`),
			fault.InvalidParam,
		},
		{
			"tracker item without status",
			validEvidence(KindTrackerItem, `{"item_source_id":"PROJ-7"}`),
			fault.MissingParam,
		},
		{
			"note without text",
			validEvidence(KindNote, `{}`),
			fault.MissingParam,
		},
		{
			"malformed payload",
			validEvidence(KindNote, `{"text":`),
			fault.InvalidParam,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.evidence.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if got := fault.CodeOf(err); got != tc.code {
				t.Errorf("code = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestEvidenceValidateRequiresHeader(t *testing.T) {
	e := Evidence{Kind: KindNote, Payload: json.RawMessage(`{"text":"x"}`)}
	if err := e.Validate(); fault.CodeOf(err) != fault.MissingParam {
		t.Errorf("missing header fields should be missing_param, got %v", err)
	}
}

func TestInvoiceAccessRequiresInvoiceKind(t *testing.T) {
	e := validEvidence(KindNote, `{"text":"late payment grumbling"}`)
	_, err := e.Invoice()
	if fault.CodeOf(err) != fault.ForbiddenSection {
		t.Errorf("invoice data on a %s envelope should be forbidden_section, got %v", KindNote, err)
	}

	inv := validEvidence(KindInvoice, `{"invoice_source_id":"inv-1","amount_cents":1,"due_on":"2026-08-01"}`)
	if _, err := inv.Invoice(); err != nil {
		t.Errorf("Invoice() on invoice evidence: %v", err)
	}
}

func TestEngagementHint(t *testing.T) {
	e := validEvidence(KindInvoice, `{"invoice_source_id":"inv-1","amount_cents":1,"due_on":"2026-08-01","engagement_hint":"Acme Rebrand"}`)
	if got := e.EngagementHint(); got != "Acme Rebrand" {
		t.Errorf("EngagementHint() = %q, want %q", got, "Acme Rebrand")
	}

	bare := validEvidence(KindNote, `{"text":"no hint"}`)
	if got := bare.EngagementHint(); got != "" {
		t.Errorf("EngagementHint() = %q, want empty", got)
	}
}

func TestSentimentValid(t *testing.T) {
	for _, s := range []Sentiment{SentimentGood, SentimentNeutral, SentimentBad} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Sentiment("mixed").Valid() {
		t.Error("unknown sentiment should be invalid")
	}
}
