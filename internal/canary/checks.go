package canary

import (
	"fmt"

	"github.com/JaimeStill/pulse/pkg/timestamp"
)

// CheckShape validates one stored timestamp value: exact canonical shape and
// a clean parse roundtrip. Lexicographic comparisons across the schema are
// only sound while every stored value passes this.
func CheckShape(value string) error {
	return timestamp.Validate(value)
}

// CheckOrdering verifies a pair of canonical timestamps where later must not
// precede earlier. String comparison is the point: canonical values order
// lexicographically.
func CheckOrdering(earlier, later string) error {
	if later < earlier {
		return fmt.Errorf("timestamp ordering inverted: %s before %s", later, earlier)
	}
	return nil
}

// CheckWatchConsistency verifies the regression watch column tracks the
// regression_watch state exactly.
func CheckWatchConsistency(state string, watchUntil *string) error {
	inWatch := state == "regression_watch"
	hasWindow := watchUntil != nil

	if inWatch && !hasWindow {
		return fmt.Errorf("regression_watch issue has no watch window")
	}
	if !inWatch && hasWindow {
		return fmt.Errorf("state %q carries a stale watch window", state)
	}
	return nil
}

// CheckSnoozeConsistency verifies snoozed rows carry their expiry and
// restore target, and non-snoozed rows carry neither.
func CheckSnoozeConsistency(state string, snoozeUntil, snoozedFrom *string) error {
	if state == "snoozed" {
		if snoozeUntil == nil {
			return fmt.Errorf("snoozed row has no snooze_until")
		}
		if snoozedFrom != nil && *snoozedFrom == "snoozed" {
			return fmt.Errorf("snoozed row restores to snoozed")
		}
		return nil
	}

	if snoozeUntil != nil {
		return fmt.Errorf("state %q carries a stale snooze_until", state)
	}
	return nil
}
