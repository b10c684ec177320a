package issues

// actionTable is the single authority on which actions a state permits.
// Both transition validation and API response shaping consult it through
// AllowedActions, so the two can never disagree.
//
// detected issues are not user-visible and accept no user actions; closed is
// terminal; regression_watch advances only through sweeps (closure) or the
// aggregation engine (regression).
var actionTable = map[State][]Action{
	StateDetected:           {},
	StateSurfaced:           {ActionAcknowledge, ActionAssign, ActionSnooze, ActionResolve, ActionEscalate},
	StateAcknowledged:       {ActionAssign, ActionSnooze, ActionAwait, ActionResolve, ActionEscalate},
	StateSnoozed:            {ActionUnsnooze},
	StateAddressing:         {ActionSnooze, ActionAwait, ActionResolve, ActionEscalate},
	StateAwaitingResolution: {ActionResolve, ActionEscalate},
	StateRegressionWatch:    {},
	StateRegressed:          {ActionAcknowledge, ActionAssign, ActionSnooze, ActionResolve, ActionEscalate},
	StateClosed:             {},
}

// AllowedActions returns the actions permitted for an issue in the given
// state. A suppressed issue accepts only unsuppress regardless of state.
func AllowedActions(state State, suppressed bool) []Action {
	if suppressed {
		return []Action{ActionUnsuppress}
	}

	actions, ok := actionTable[state]
	if !ok {
		return []Action{}
	}

	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// ActionAllowed reports whether the action is permitted for the given
// (state, suppressed) combination.
func ActionAllowed(state State, suppressed bool, action Action) bool {
	for _, a := range AllowedActions(state, suppressed) {
		if a == action {
			return true
		}
	}
	return false
}

// Actionable reports whether an issue in this state can still be worked by a
// user. Transitions into non-actionable states auto-archive any active
// proposal wrapping the issue.
func Actionable(state State, suppressed bool) bool {
	if suppressed {
		return false
	}

	switch state {
	case StateSnoozed, StateRegressionWatch, StateClosed:
		return false
	}
	return true
}
