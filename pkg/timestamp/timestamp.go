// Package timestamp provides the canonical timestamp representation and
// organization-local day-boundary math that lifecycle state depends on.
//
// Every persisted and exchanged timestamp is a fixed-width 24-character UTC
// string with millisecond precision. Lexicographic order on this format is
// chronological order, so canonical strings compare correctly both in SQL
// and in Go without parsing.
package timestamp

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the canonical timestamp layout: UTC, millisecond precision,
// trailing literal Z. Exactly Length bytes when formatted.
const Layout = "2006-01-02T15:04:05.000Z"

// Length is the byte length of every canonical timestamp.
const Length = 24

// ErrInvalid indicates a value that is not a canonical timestamp. Malformed
// values are never coerced; callers reject them at the boundary.
var ErrInvalid = errors.New("invalid canonical timestamp")

// Format renders t as a canonical timestamp string.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Now returns the current instant as a canonical timestamp string.
func Now() string {
	return Format(time.Now())
}

// Parse converts a canonical timestamp string to a time.Time.
// The value must be exactly Length bytes, parse under Layout, and survive a
// format roundtrip unchanged; anything else returns ErrInvalid.
func Parse(s string) (time.Time, error) {
	if len(s) != Length {
		return time.Time{}, fmt.Errorf("%w: %q has length %d, want %d", ErrInvalid, s, len(s), Length)
	}

	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}

	if Format(t) != s {
		return time.Time{}, fmt.Errorf("%w: %q does not roundtrip", ErrInvalid, s)
	}

	return t, nil
}

// Validate reports whether s is a canonical timestamp (parse + roundtrip).
func Validate(s string) error {
	_, err := Parse(s)
	return err
}

// Before reports whether a is strictly earlier than b. Both values must be
// canonical; comparison is lexicographic.
func Before(a, b string) bool {
	return a < b
}

// AtOrBefore reports whether a is earlier than or equal to b.
func AtOrBefore(a, b string) bool {
	return a <= b
}
