package inbox

import (
	"slices"
	"testing"

	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/pkg/fault"
)

func TestTerminalStatesAllowNothing(t *testing.T) {
	for _, itemType := range []ItemType{TypeIssue, TypeFlaggedSignal, TypeOrphan, TypeAmbiguous} {
		for _, state := range []State{StateDismissed, StateLinkedToIssue} {
			if actions := AllowedActions(itemType, state); len(actions) != 0 {
				t.Errorf("%s/%s allows %v, want none", itemType, state, actions)
			}
		}
	}
}

func TestSnoozedLosesOnlySnooze(t *testing.T) {
	for itemType, base := range actionTable {
		snoozed := AllowedActions(itemType, StateSnoozed)

		if slices.Contains(snoozed, ActionSnooze) {
			t.Errorf("%s: snoozed item must not snooze again", itemType)
		}

		for _, a := range base {
			if a == ActionSnooze {
				continue
			}
			if !slices.Contains(snoozed, a) {
				t.Errorf("%s: snoozed item should keep %s", itemType, a)
			}
		}
	}
}

func TestActionsByItemType(t *testing.T) {
	cases := []struct {
		itemType ItemType
		action   Action
		want     bool
	}{
		{TypeIssue, ActionTag, true},
		{TypeIssue, ActionAssign, true},
		{TypeIssue, ActionLink, false},
		{TypeFlaggedSignal, ActionTag, false},
		{TypeFlaggedSignal, ActionDismiss, true},
		{TypeOrphan, ActionLink, true},
		{TypeOrphan, ActionCreate, true},
		{TypeOrphan, ActionSelect, false},
		{TypeAmbiguous, ActionSelect, true},
		{TypeAmbiguous, ActionCreate, false},
	}

	for _, tc := range cases {
		if got := ActionAllowed(tc.itemType, StateProposed, tc.action); got != tc.want {
			t.Errorf("ActionAllowed(%s, proposed, %s) = %v, want %v", tc.itemType, tc.action, got, tc.want)
		}
	}
}

func TestDisplaySeverityIsMax(t *testing.T) {
	high := issues.SeverityHigh
	low := issues.SeverityLow

	if got := DisplaySeverity(issues.SeverityModerate, &high); got != issues.SeverityHigh {
		t.Errorf("display severity = %s, want high", got)
	}
	if got := DisplaySeverity(issues.SeverityModerate, &low); got != issues.SeverityModerate {
		t.Errorf("display severity = %s, want moderate snapshot", got)
	}
	if got := DisplaySeverity(issues.SeverityModerate, nil); got != issues.SeverityModerate {
		t.Errorf("display severity = %s, want snapshot for signal-backed items", got)
	}
}

func TestStateClassification(t *testing.T) {
	for _, s := range []State{StateProposed, StateSnoozed} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []State{StateDismissed, StateLinkedToIssue} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if State("resolved").Valid() {
		t.Error("resolved is not an inbox state")
	}
}

func TestDecodeParamsContracts(t *testing.T) {
	var tag struct {
		Tag string `json:"tag"`
	}

	if err := decodeParams([]byte(`{"tag":"billing"}`), &tag); err != nil {
		t.Errorf("exact payload should decode: %v", err)
	}

	err := decodeParams([]byte(`{"tag":"billing","extra":1}`), &tag)
	if fault.CodeOf(err) != fault.UnexpectedParam {
		t.Errorf("extra field should be unexpected_param, got %v", err)
	}

	err = decodeParams([]byte(`{"tag":`), &tag)
	if fault.CodeOf(err) != fault.InvalidParam {
		t.Errorf("malformed JSON should be invalid_param, got %v", err)
	}

	err = decodeParams([]byte(`{"tag":42}`), &tag)
	if fault.CodeOf(err) != fault.InvalidParam {
		t.Errorf("type mismatch should be invalid_param, got %v", err)
	}

	// The snooze contract forbids client-supplied expiry timestamps.
	var snooze struct {
		Days int `json:"days"`
	}
	err = decodeParams([]byte(`{"days":7,"snooze_until":"2026-09-05T00:00:00.000Z"}`), &snooze)
	if fault.CodeOf(err) != fault.UnexpectedParam {
		t.Errorf("client-supplied snooze_until should be unexpected_param, got %v", err)
	}

	if err := decodeParams(nil, &struct{}{}); err != nil {
		t.Errorf("empty params should decode into empty contract: %v", err)
	}
}
