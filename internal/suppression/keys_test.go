package suppression

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
)

var hexKey = regexp.MustCompile(`^[0-9a-f]{64}$`)

func ptr[T any](v T) *T { return &v }

func TestKeyDeterministic(t *testing.T) {
	engagement := uuid.MustParse("8b7f7a84-4f2e-4f7e-9f2e-111111111111")
	scope := Scope{
		ClientID:      uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		EngagementID:  &engagement,
		RuleTriggered: ptr("unanswered_48h"),
	}

	a, err := Key(ItemFlaggedSignal, scope)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	b, err := Key(ItemFlaggedSignal, scope)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}

	if a != b {
		t.Errorf("identical input produced different keys: %s vs %s", a, b)
	}
	if !hexKey.MatchString(a) {
		t.Errorf("key %q is not 64 hex chars", a)
	}
}

func TestKeyScopePrecedence(t *testing.T) {
	client := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	engagement := uuid.MustParse("00000000-0000-0000-0000-00000000000e")
	brand := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	full := Scope{ClientID: client, EngagementID: &engagement, BrandID: &brand}
	engagementOnly := Scope{ClientID: client, EngagementID: &engagement}

	a, _ := Key(ItemIssue, full)
	b, _ := Key(ItemIssue, engagementOnly)
	if a != b {
		t.Error("engagement scope should shadow brand and client in the key")
	}

	brandOnly := Scope{ClientID: client, BrandID: &brand}
	c, _ := Key(ItemIssue, brandOnly)
	if c == a {
		t.Error("brand-scoped key should differ from engagement-scoped key")
	}

	fingerprint := Scope{ClientID: client, RootCauseFingerprint: ptr("mail:unanswered_48h")}
	d, _ := Key(ItemIssue, fingerprint)
	if d == c || d == a {
		t.Error("fingerprint-scoped key should differ from other scopes")
	}
}

func TestKeyRuleDiscriminatesNonIssueTypes(t *testing.T) {
	engagement := uuid.MustParse("00000000-0000-0000-0000-00000000000e")
	base := Scope{ClientID: uuid.New(), EngagementID: &engagement}

	withRule := base
	withRule.RuleTriggered = ptr("unanswered_48h")
	otherRule := base
	otherRule.RuleTriggered = ptr("meeting_missed")

	a, _ := Key(ItemFlaggedSignal, withRule)
	b, _ := Key(ItemFlaggedSignal, otherRule)
	if a == b {
		t.Error("different triggering rules must not share a flagged_signal key")
	}

	// Issue keys ignore the rule: the issue is the identity.
	c, _ := Key(ItemIssue, withRule)
	d, _ := Key(ItemIssue, otherRule)
	if c != d {
		t.Error("issue keys must not vary by triggering rule")
	}
}

func TestKeyVariesByItemType(t *testing.T) {
	engagement := uuid.MustParse("00000000-0000-0000-0000-00000000000e")
	scope := Scope{ClientID: uuid.New(), EngagementID: &engagement}

	a, _ := Key(ItemIssue, scope)
	b, _ := Key(ItemOrphan, scope)
	if a == b {
		t.Error("item type must discriminate suppression keys")
	}
}

func TestRuleActive(t *testing.T) {
	now := "2026-08-29T12:00:00.000Z"

	cases := []struct {
		name string
		rule Rule
		want bool
	}{
		{"permanent", Rule{}, true},
		{"unexpired", Rule{ExpiresAt: ptr("2026-09-01T00:00:00.000Z")}, true},
		{"expired", Rule{ExpiresAt: ptr("2026-08-01T00:00:00.000Z")}, false},
		{"deleted", Rule{DeletedAt: ptr("2026-08-20T00:00:00.000Z")}, false},
		{"deleted overrides expiry", Rule{ExpiresAt: ptr("2026-09-01T00:00:00.000Z"), DeletedAt: ptr(now)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rule.Active(now); got != tc.want {
				t.Errorf("Active = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConfigTTLDefaults(t *testing.T) {
	var c Config
	if err := c.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	cases := map[string]int{
		ItemIssue:         90,
		ItemFlaggedSignal: 30,
		ItemOrphan:        180,
		ItemAmbiguous:     30,
	}

	for itemType, want := range cases {
		if got := c.TTLDays(itemType); got != want {
			t.Errorf("TTLDays(%s) = %d, want %d", itemType, got, want)
		}
	}
}
