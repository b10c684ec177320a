package canary

import (
	"strings"
	"testing"
)

func ptr[T any](v T) *T {
	return &v
}

func TestCheckShape(t *testing.T) {
	if err := CheckShape("2026-08-29T14:30:00.000Z"); err != nil {
		t.Errorf("canonical value rejected: %v", err)
	}

	bad := []string{
		"2026-08-29T14:30:00Z",           // no millis
		"2026-08-29T14:30:00.000+00:00",  // offset form
		"2026-08-29 14:30:00.000Z",       // space separator
		"2026-08-29T14:30:00.000z",       // lowercase zone
		"2026-08-29T14:30:00.0000Z",      // extra precision
		"2026-13-29T14:30:00.000Z",       // invalid month
		"",
	}
	for _, v := range bad {
		if err := CheckShape(v); err == nil {
			t.Errorf("CheckShape(%q) accepted a non-canonical value", v)
		}
	}
}

func TestCheckOrdering(t *testing.T) {
	if err := CheckOrdering("2026-08-29T10:00:00.000Z", "2026-08-29T11:00:00.000Z"); err != nil {
		t.Errorf("forward ordering rejected: %v", err)
	}
	if err := CheckOrdering("2026-08-29T10:00:00.000Z", "2026-08-29T10:00:00.000Z"); err != nil {
		t.Errorf("equal timestamps rejected: %v", err)
	}
	if err := CheckOrdering("2026-08-29T11:00:00.000Z", "2026-08-29T10:00:00.000Z"); err == nil {
		t.Error("inverted ordering accepted")
	}
}

func TestCheckWatchConsistency(t *testing.T) {
	until := "2026-11-27T05:00:00.000Z"

	if err := CheckWatchConsistency("regression_watch", &until); err != nil {
		t.Errorf("consistent watch rejected: %v", err)
	}
	if err := CheckWatchConsistency("regression_watch", nil); err == nil {
		t.Error("watch state without window accepted")
	}
	if err := CheckWatchConsistency("acknowledged", &until); err == nil {
		t.Error("stale window outside watch state accepted")
	}
	if err := CheckWatchConsistency("closed", nil); err != nil {
		t.Errorf("closed issue without window rejected: %v", err)
	}
}

func TestCheckSnoozeConsistency(t *testing.T) {
	until := "2026-09-05T05:00:00.000Z"

	if err := CheckSnoozeConsistency("snoozed", &until, ptr("acknowledged")); err != nil {
		t.Errorf("consistent snooze rejected: %v", err)
	}
	if err := CheckSnoozeConsistency("snoozed", nil, ptr("acknowledged")); err == nil {
		t.Error("snoozed row without expiry accepted")
	}
	if err := CheckSnoozeConsistency("snoozed", &until, ptr("snoozed")); err == nil {
		t.Error("snooze restoring to snoozed accepted")
	}
	if err := CheckSnoozeConsistency("acknowledged", &until, nil); err == nil {
		t.Error("stale snooze_until outside snoozed state accepted")
	}
	if err := CheckSnoozeConsistency("acknowledged", nil, nil); err != nil {
		t.Errorf("clean active row rejected: %v", err)
	}
}

func TestEveryDomainTableIsScanned(t *testing.T) {
	for _, table := range []string{"signals", "issues", "inbox_items", "suppression_rules", "issue_transitions"} {
		columns, ok := timestampColumns[table]
		if !ok || len(columns) == 0 {
			t.Errorf("table %s has no timestamp columns registered", table)
		}
	}

	for table, columns := range timestampColumns {
		for _, column := range columns {
			if strings.TrimSpace(column) == "" {
				t.Errorf("table %s registers an empty column", table)
			}
		}
	}
}
