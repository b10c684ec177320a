package signals

import (
	"encoding/json"
	"time"

	"github.com/JaimeStill/pulse/pkg/fault"
	"github.com/JaimeStill/pulse/pkg/timestamp"
)

// Evidence is the structured envelope every signal carries: a fixed header
// plus a kind-specific payload validated against that kind's schema.
// Rendering dispatches on (kind, source_system), never on ad-hoc presence
// checks, so unknown kinds are rejected at the boundary.
type Evidence struct {
	Kind         string          `json:"kind"`
	SourceSystem string          `json:"source_system"`
	URL          *string         `json:"url"`
	DisplayText  string          `json:"display_text"`
	Payload      json.RawMessage `json:"payload"`
}

// Evidence kinds form a closed set; each has its own payload schema.
const (
	KindInvoice     = "invoice"
	KindThread      = "thread"
	KindMeeting     = "meeting"
	KindTrackerItem = "tracker_item"
	KindNote        = "note"
)

// InvoicePayload is the evidence payload for invoicing observations.
type InvoicePayload struct {
	InvoiceSourceID string `json:"invoice_source_id"`
	AmountCents     int64  `json:"amount_cents"`
	DueOn           string `json:"due_on"`
	EngagementHint  string `json:"engagement_hint,omitempty"`
}

// ThreadPayload is the evidence payload for mail/chat thread observations.
type ThreadPayload struct {
	ThreadSourceID string   `json:"thread_source_id"`
	LastMessageAt  string   `json:"last_message_at"`
	Participants   []string `json:"participants"`
	EngagementHint string   `json:"engagement_hint,omitempty"`
}

// MeetingPayload is the evidence payload for calendar observations.
type MeetingPayload struct {
	EventSourceID  string   `json:"event_source_id"`
	ScheduledFor   string   `json:"scheduled_for"`
	Attendees      []string `json:"attendees"`
	EngagementHint string   `json:"engagement_hint,omitempty"`
}

// TrackerItemPayload is the evidence payload for project tracker observations.
type TrackerItemPayload struct {
	ItemSourceID   string `json:"item_source_id"`
	Status         string `json:"status"`
	DueOn          string `json:"due_on,omitempty"`
	EngagementHint string `json:"engagement_hint,omitempty"`
}

// NotePayload is the evidence payload for free-form observations.
type NotePayload struct {
	Text           string `json:"text"`
	EngagementHint string `json:"engagement_hint,omitempty"`
}

const dateLayout = "2006-01-02"

// Validate checks the envelope header and the kind-specific payload schema.
func (e *Evidence) Validate() error {
	if e.SourceSystem == "" {
		return fault.New(fault.MissingParam, "evidence.source_system required")
	}
	if e.DisplayText == "" {
		return fault.New(fault.MissingParam, "evidence.display_text required")
	}
	if len(e.Payload) == 0 {
		return fault.New(fault.MissingParam, "evidence.payload required")
	}

	switch e.Kind {
	case KindInvoice:
		var p InvoicePayload
		if err := decodePayload(e.Payload, &p); err != nil {
			return err
		}
		if p.InvoiceSourceID == "" {
			return fault.New(fault.MissingParam, "invoice payload requires invoice_source_id")
		}
		if p.AmountCents < 0 {
			return fault.New(fault.InvalidParam, "invoice amount_cents must not be negative")
		}
		if err := validateDate(p.DueOn, "due_on"); err != nil {
			return err
		}
	case KindThread:
		var p ThreadPayload
		if err := decodePayload(e.Payload, &p); err != nil {
			return err
		}
		if p.ThreadSourceID == "" {
			return fault.New(fault.MissingParam, "thread payload requires thread_source_id")
		}
		if err := timestamp.Validate(p.LastMessageAt); err != nil {
			return fault.Wrap(fault.InvalidParam, err, "thread last_message_at")
		}
	case KindMeeting:
		var p MeetingPayload
		if err := decodePayload(e.Payload, &p); err != nil {
			return err
		}
		if p.EventSourceID == "" {
			return fault.New(fault.MissingParam, "meeting payload requires event_source_id")
		}
		if err := timestamp.Validate(p.ScheduledFor); err != nil {
			return fault.Wrap(fault.InvalidParam, err, "meeting scheduled_for")
		}
	case KindTrackerItem:
		var p TrackerItemPayload
		if err := decodePayload(e.Payload, &p); err != nil {
			return err
		}
		if p.ItemSourceID == "" {
			return fault.New(fault.MissingParam, "tracker_item payload requires item_source_id")
		}
		if p.Status == "" {
			return fault.New(fault.MissingParam, "tracker_item payload requires status")
		}
		if p.DueOn != "" {
			if err := validateDate(p.DueOn, "due_on"); err != nil {
				return err
			}
		}
	case KindNote:
		var p NotePayload
		if err := decodePayload(e.Payload, &p); err != nil {
			return err
		}
		if p.Text == "" {
			return fault.New(fault.MissingParam, "note payload requires text")
		}
	case "":
		return fault.New(fault.MissingParam, "evidence.kind required")
	default:
		return fault.New(fault.InvalidParam, "unknown evidence kind %q", e.Kind)
	}

	return nil
}

// EngagementHint extracts the engagement name hint from the payload, if the
// kind carries one. Used to route unscoped signals to orphan/ambiguous
// resolution.
func (e *Evidence) EngagementHint() string {
	var probe struct {
		EngagementHint string `json:"engagement_hint"`
	}
	if err := json.Unmarshal(e.Payload, &probe); err != nil {
		return ""
	}
	return probe.EngagementHint
}

// Invoice decodes the payload as an invoice. Callers must have validated the
// evidence kind first.
func (e *Evidence) Invoice() (InvoicePayload, error) {
	var p InvoicePayload
	if e.Kind != KindInvoice {
		return p, fault.New(fault.ForbiddenSection, "evidence kind %q carries no invoice data", e.Kind)
	}
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

func decodePayload(raw json.RawMessage, dest any) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fault.Wrap(fault.InvalidParam, err, "malformed evidence payload")
	}
	return nil
}

func validateDate(s, field string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fault.Wrap(fault.InvalidParam, err, "invalid %s", field)
	}
	return nil
}
