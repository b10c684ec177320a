package issues

import (
	"strings"
	"testing"

	"github.com/JaimeStill/pulse/internal/canary"
)

func TestTransitionUpdateClearsWatchWindow(t *testing.T) {
	q := transitionUpdate(StateRegressionWatch)
	if !strings.Contains(q, "regression_watch_until = NULL") {
		t.Error("leaving regression_watch must clear the watch window")
	}

	for _, state := range []State{StateDetected, StateSurfaced, StateAcknowledged, StateAddressing, StateRegressed} {
		if strings.Contains(transitionUpdate(state), "regression_watch_until") {
			t.Errorf("leaving %s must not touch the watch window", state)
		}
	}
}

func TestWatchClosureRowPassesConsistencyScan(t *testing.T) {
	// Column effects of the watch-closure transition: state becomes closed
	// and the window is gone. The startup scan must accept that row.
	if err := canary.CheckWatchConsistency(string(StateClosed), nil); err != nil {
		t.Errorf("closed issue without watch window rejected: %v", err)
	}

	// A closure that left the window behind is exactly what the scan exists
	// to catch.
	until := "2026-11-27T05:00:00.000Z"
	if err := canary.CheckWatchConsistency(string(StateClosed), &until); err == nil {
		t.Error("closed issue with a stale watch window accepted")
	}
}
