package issues

import (
	"slices"
	"testing"
)

func TestSuppressedAcceptsOnlyUnsuppress(t *testing.T) {
	for state := range actionTable {
		actions := AllowedActions(state, true)
		if len(actions) != 1 || actions[0] != ActionUnsuppress {
			t.Errorf("suppressed %s allows %v, want [unsuppress]", state, actions)
		}
	}
}

func TestTerminalAndHiddenStatesAllowNothing(t *testing.T) {
	for _, state := range []State{StateDetected, StateClosed, StateRegressionWatch} {
		if actions := AllowedActions(state, false); len(actions) != 0 {
			t.Errorf("%s allows %v, want none", state, actions)
		}
	}
}

func TestSnoozedAllowsOnlyUnsnooze(t *testing.T) {
	actions := AllowedActions(StateSnoozed, false)
	if len(actions) != 1 || actions[0] != ActionUnsnooze {
		t.Errorf("snoozed allows %v, want [unsnooze]", actions)
	}
}

func TestRegressedIsActionableAgain(t *testing.T) {
	actions := AllowedActions(StateRegressed, false)
	for _, want := range []Action{ActionAcknowledge, ActionAssign, ActionSnooze, ActionResolve, ActionEscalate} {
		if !slices.Contains(actions, want) {
			t.Errorf("regressed should allow %s", want)
		}
	}
}

func TestActionAllowedMatchesTable(t *testing.T) {
	if !ActionAllowed(StateSurfaced, false, ActionAcknowledge) {
		t.Error("surfaced should allow acknowledge")
	}
	if ActionAllowed(StateSurfaced, false, ActionUnsnooze) {
		t.Error("surfaced should not allow unsnooze")
	}
	if ActionAllowed(StateSurfaced, true, ActionAcknowledge) {
		t.Error("suppressed surfaced should not allow acknowledge")
	}
	if !ActionAllowed(StateClosed, true, ActionUnsuppress) {
		t.Error("suppressed issues allow unsuppress regardless of state")
	}
}

func TestResolvedNeverPersistable(t *testing.T) {
	if StateResolved.Persistable() {
		t.Error("resolved must never be a persistable state")
	}

	for state := range actionTable {
		if !state.Persistable() {
			t.Errorf("%s is in the action table but not persistable", state)
		}
	}
}

func TestActionable(t *testing.T) {
	cases := []struct {
		state      State
		suppressed bool
		want       bool
	}{
		{StateSurfaced, false, true},
		{StateAcknowledged, false, true},
		{StateAddressing, false, true},
		{StateRegressed, false, true},
		{StateSnoozed, false, false},
		{StateRegressionWatch, false, false},
		{StateClosed, false, false},
		{StateSurfaced, true, false},
	}

	for _, tc := range cases {
		if got := Actionable(tc.state, tc.suppressed); got != tc.want {
			t.Errorf("Actionable(%s, %v) = %v, want %v", tc.state, tc.suppressed, got, tc.want)
		}
	}
}

func TestAllowedActionsReturnsCopy(t *testing.T) {
	first := AllowedActions(StateSurfaced, false)
	first[0] = ActionUnsuppress

	second := AllowedActions(StateSurfaced, false)
	if second[0] == ActionUnsuppress {
		t.Error("mutating a returned slice must not corrupt the table")
	}
}
