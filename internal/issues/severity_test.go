package issues

import (
	"testing"
)

func TestDeriveSeverityFinancial(t *testing.T) {
	cases := []struct {
		name string
		in   SeverityInputs
		want Severity
	}{
		{"fresh", SeverityInputs{DaysOverdue: 3, AmountCents: 100_00}, SeverityLow},
		{"two weeks overdue", SeverityInputs{DaysOverdue: 14}, SeverityModerate},
		{"large amount", SeverityInputs{DaysOverdue: 2, AmountCents: 500_000}, SeverityModerate},
		{"month overdue", SeverityInputs{DaysOverdue: 30}, SeverityHigh},
		{"two months overdue", SeverityInputs{DaysOverdue: 60}, SeverityCritical},
		{"month overdue large amount", SeverityInputs{DaysOverdue: 30, AmountCents: 1_000_000}, SeverityCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveSeverity(TypeFinancial, tc.in); got != tc.want {
				t.Errorf("DeriveSeverity = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDeriveSeverityBySignalVolume(t *testing.T) {
	cases := []struct {
		issueType Type
		in        SeverityInputs
		want      Severity
	}{
		{TypeSchedule, SeverityInputs{SignalCount: 1}, SeverityLow},
		{TypeSchedule, SeverityInputs{SignalCount: 3}, SeverityModerate},
		{TypeSchedule, SeverityInputs{SignalCount: 5}, SeverityHigh},
		{TypeSchedule, SeverityInputs{SignalCount: 8}, SeverityCritical},
		{TypeCommunication, SeverityInputs{BadStreak: 5}, SeverityCritical},
		{TypeCommunication, SeverityInputs{SignalCount: 2, BadStreak: 2}, SeverityModerate},
		{TypeRisk, SeverityInputs{SignalCount: 1}, SeverityLow},
		{TypeRisk, SeverityInputs{SignalCount: 2}, SeverityModerate},
		{TypeRisk, SeverityInputs{BadStreak: 3}, SeverityCritical},
	}

	for _, tc := range cases {
		if got := DeriveSeverity(tc.issueType, tc.in); got != tc.want {
			t.Errorf("DeriveSeverity(%s, %+v) = %s, want %s", tc.issueType, tc.in, got, tc.want)
		}
	}
}

// Recomputation may only escalate, and a user-set severity is sticky. The
// precedence between manual escalation and automatic recomputation is a
// deliberate decision here: user wins, always.
func TestMergeSeverity(t *testing.T) {
	cases := []struct {
		name    string
		current Severity
		source  SeveritySource
		derived Severity
		want    Severity
	}{
		{"system escalates", SeverityLow, SeveritySystem, SeverityHigh, SeverityHigh},
		{"system never de-escalates", SeverityHigh, SeveritySystem, SeverityLow, SeverityHigh},
		{"user severity sticky against higher", SeverityModerate, SeverityUser, SeverityCritical, SeverityModerate},
		{"user severity sticky against lower", SeverityHigh, SeverityUser, SeverityLow, SeverityHigh},
		{"equal is kept", SeverityModerate, SeveritySystem, SeverityModerate, SeverityModerate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MergeSeverity(tc.current, tc.source, tc.derived); got != tc.want {
				t.Errorf("MergeSeverity = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEscalateSeverityCapped(t *testing.T) {
	cases := []struct{ current, want Severity }{
		{SeverityLow, SeverityModerate},
		{SeverityModerate, SeverityHigh},
		{SeverityHigh, SeverityCritical},
		{SeverityCritical, SeverityCritical},
	}

	for _, tc := range cases {
		if got := EscalateSeverity(tc.current); got != tc.want {
			t.Errorf("EscalateSeverity(%s) = %s, want %s", tc.current, got, tc.want)
		}
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	ordered := []Severity{SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%s should rank above %s", ordered[i], ordered[i-1])
		}
	}
	if Severity("bogus").Rank() >= SeverityLow.Rank() {
		t.Error("unknown severity must rank below low")
	}
}
