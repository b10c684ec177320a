package timestamp_test

import (
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/pulse/pkg/timestamp"
)

func TestFormatLength(t *testing.T) {
	got := timestamp.Format(time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC))
	if got != "2026-03-14T09:26:53.589Z" {
		t.Errorf("Format = %q, want 2026-03-14T09:26:53.589Z", got)
	}
	if len(got) != timestamp.Length {
		t.Errorf("len = %d, want %d", len(got), timestamp.Length)
	}
}

func TestFormatConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("plus2", 2*3600)
	got := timestamp.Format(time.Date(2026, 3, 14, 2, 0, 0, 0, loc))
	if got != "2026-03-14T00:00:00.000Z" {
		t.Errorf("Format = %q, want 2026-03-14T00:00:00.000Z", got)
	}
}

func TestParseRoundtrip(t *testing.T) {
	s := "2026-08-29T15:04:05.123Z"
	parsed, err := timestamp.Parse(s)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if timestamp.Format(parsed) != s {
		t.Errorf("roundtrip = %q, want %q", timestamp.Format(parsed), s)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "2026-08-29T15:04:05Z"},
		{"long", "2026-08-29T15:04:05.1234Z"},
		{"right length, no zone", "2026-08-29T15:04:05.0000"},
		{"lowercase z", "2026-08-29T15:04:05.123z"},
		{"offset form", "2026-08-29T15:04:05+00:00"},
		{"space separator", "2026-08-29 15:04:05.123Z"},
		{"bad month", "2026-13-29T15:04:05.123Z"},
		{"bad day", "2026-02-30T15:04:05.123Z"},
		{"not a timestamp", "yesterday around noonish!"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := timestamp.Parse(tc.input); !errors.Is(err, timestamp.ErrInvalid) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalid", tc.input, err)
			}
		})
	}
}

func TestLexicographicOrderIsChronological(t *testing.T) {
	earlier := timestamp.Format(time.Date(2026, 1, 31, 23, 59, 59, 999_000_000, time.UTC))
	later := timestamp.Format(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	if !timestamp.Before(earlier, later) {
		t.Errorf("Before(%q, %q) = false, want true", earlier, later)
	}
	if timestamp.Before(later, earlier) {
		t.Errorf("Before(%q, %q) = true, want false", later, earlier)
	}
	if !timestamp.AtOrBefore(earlier, earlier) {
		t.Error("AtOrBefore should be reflexive")
	}
}

func TestNewOrgRejectsDSTZones(t *testing.T) {
	if _, err := timestamp.NewOrg("America/New_York"); err == nil {
		t.Error("NewOrg(America/New_York) should reject a DST-observing zone")
	}
	if _, err := timestamp.NewOrg("Narnia/Lantern"); err == nil {
		t.Error("NewOrg should reject unknown zones")
	}
}

func TestOrgMidnightAfterDays(t *testing.T) {
	// Etc/GMT-2 is UTC+2 year-round (POSIX sign convention).
	org, err := timestamp.NewOrg("Etc/GMT-2")
	if err != nil {
		t.Fatalf("NewOrg error: %v", err)
	}

	// Local 15:00 on 2026-08-29 is 13:00 UTC.
	at := time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC)

	t.Run("snooze lands on local midnight, not now+168h", func(t *testing.T) {
		got := org.MidnightAfterDays(at, 7)
		// Local midnight of 2026-09-05 is 2026-09-04T22:00Z.
		if got != "2026-09-04T22:00:00.000Z" {
			t.Errorf("MidnightAfterDays = %q, want 2026-09-04T22:00:00.000Z", got)
		}
	})

	t.Run("window boundary looks back in local days", func(t *testing.T) {
		got := org.DaysAgoBoundary(at, 1)
		if got != "2026-08-27T22:00:00.000Z" {
			t.Errorf("DaysAgoBoundary = %q, want 2026-08-27T22:00:00.000Z", got)
		}
	})

	t.Run("month rollover", func(t *testing.T) {
		got := org.MidnightAfterDays(time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC), 1)
		if got != "2026-08-31T22:00:00.000Z" {
			t.Errorf("MidnightAfterDays = %q, want 2026-08-31T22:00:00.000Z", got)
		}
	})
}

func TestOrgSameLocalDay(t *testing.T) {
	org, err := timestamp.NewOrg("Etc/GMT-2")
	if err != nil {
		t.Fatalf("NewOrg error: %v", err)
	}

	// 22:30 UTC and 23:30 UTC straddle nothing locally (00:30 and 01:30 next day).
	a := time.Date(2026, 8, 29, 22, 30, 0, 0, time.UTC)
	b := time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC)
	if !org.SameLocalDay(a, b) {
		t.Error("SameLocalDay = false, want true")
	}

	// 21:30 UTC is still the prior local day.
	c := time.Date(2026, 8, 29, 21, 30, 0, 0, time.UTC)
	if org.SameLocalDay(a, c) {
		t.Error("SameLocalDay = true, want false")
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults to UTC", func(t *testing.T) {
		var cfg timestamp.Config
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize error: %v", err)
		}
		if cfg.Timezone != "UTC" {
			t.Errorf("Timezone = %q, want UTC", cfg.Timezone)
		}
	})

	t.Run("rejects DST zone", func(t *testing.T) {
		cfg := timestamp.Config{Timezone: "Europe/Berlin"}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("Finalize should reject DST-observing zone")
		}
	})
}
