package issues

// SeverityInputs carries the measurements the per-type severity tables
// threshold over. Day counts are org-local day boundaries, never rolling
// 24-hour windows; callers compute them through timestamp.Org.
type SeverityInputs struct {
	// SignalCount is the number of linked signals within the rolling
	// org-local day window.
	SignalCount int
	// BadStreak is the current run of consecutive bad-sentiment signals.
	BadStreak int
	// DaysOverdue applies to financial issues: org-local days past due_on.
	DaysOverdue int
	// AmountCents applies to financial issues.
	AmountCents int64
}

type severityRule struct {
	severity Severity
	match    func(SeverityInputs) bool
}

// Threshold tables per issue type, checked highest severity first.
var severityTables = map[Type][]severityRule{
	TypeFinancial: {
		{SeverityCritical, func(in SeverityInputs) bool {
			return in.DaysOverdue >= 60 || (in.DaysOverdue >= 30 && in.AmountCents >= 1_000_000)
		}},
		{SeverityHigh, func(in SeverityInputs) bool {
			return in.DaysOverdue >= 30 || (in.DaysOverdue >= 14 && in.AmountCents >= 1_000_000)
		}},
		{SeverityModerate, func(in SeverityInputs) bool {
			return in.DaysOverdue >= 14 || in.AmountCents >= 500_000
		}},
	},
	TypeSchedule: {
		{SeverityCritical, func(in SeverityInputs) bool { return in.SignalCount >= 8 }},
		{SeverityHigh, func(in SeverityInputs) bool { return in.SignalCount >= 5 || in.BadStreak >= 4 }},
		{SeverityModerate, func(in SeverityInputs) bool { return in.SignalCount >= 3 || in.BadStreak >= 2 }},
	},
	TypeCommunication: {
		{SeverityCritical, func(in SeverityInputs) bool { return in.BadStreak >= 5 }},
		{SeverityHigh, func(in SeverityInputs) bool { return in.SignalCount >= 6 || in.BadStreak >= 3 }},
		{SeverityModerate, func(in SeverityInputs) bool { return in.SignalCount >= 3 || in.BadStreak >= 2 }},
	},
	TypeRisk: {
		{SeverityCritical, func(in SeverityInputs) bool { return in.SignalCount >= 5 || in.BadStreak >= 3 }},
		{SeverityHigh, func(in SeverityInputs) bool { return in.SignalCount >= 3 }},
		{SeverityModerate, func(in SeverityInputs) bool { return in.SignalCount >= 2 || in.BadStreak >= 1 }},
	},
}

// DeriveSeverity evaluates the issue type's threshold table against the
// inputs and returns the highest matching severity, defaulting to low.
func DeriveSeverity(t Type, in SeverityInputs) Severity {
	for _, rule := range severityTables[t] {
		if rule.match(in) {
			return rule.severity
		}
	}
	return SeverityLow
}

// MergeSeverity applies a freshly derived severity to an issue's current
// severity. Recomputation may only escalate; a user-set severity is sticky
// and never recomputed.
func MergeSeverity(current Severity, source SeveritySource, derived Severity) Severity {
	if source == SeverityUser {
		return current
	}
	if derived.Rank() > current.Rank() {
		return derived
	}
	return current
}

// EscalateSeverity bumps severity one level, capped at critical.
func EscalateSeverity(current Severity) Severity {
	switch current {
	case SeverityLow:
		return SeverityModerate
	case SeverityModerate:
		return SeverityHigh
	case SeverityHigh, SeverityCritical:
		return SeverityCritical
	}
	return SeverityModerate
}
