package model

import (
	"errors"
	"reflect"
	"testing"
)

func TestRuleSet_HomogeneityViolation(t *testing.T) {
	rs, err := NewRuleSet(SetDomain, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rs.Add(mustRule(t, DomainSuffix, "example.com")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = rs.Add(mustRule(t, IPCIDR, "203.0.113.0/24"))
	var re *RuleError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuleError, got %T: %v", err, err)
	}
	if re.Code != "KIND_MISMATCH" {
		t.Fatalf("code=%q, want=%q", re.Code, "KIND_MISMATCH")
	}
	if rs.Len() != 1 {
		t.Fatalf("failed insert must leave the set unchanged, len=%d", rs.Len())
	}
}

func TestRuleSet_UnionKeepsIdentityUnique(t *testing.T) {
	a, _ := NewRuleSet(SetDomain, nil)
	_ = a.Add(mustRule(t, DomainSuffix, "example.com"))

	b, _ := NewRuleSet(SetDomain, nil)
	_ = b.Add(mustTagged(t, DomainSuffix, "example.com", "cn"))
	_ = b.Add(mustRule(t, DomainFull, "www.example.org"))

	if err := a.Union(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("len=%d, want=2 (tagged re-import must merge by identity)", a.Len())
	}
}

func TestRuleSet_SortOrder(t *testing.T) {
	rs, _ := NewRuleSet(SetDomain, nil)
	for _, r := range []Rule{
		mustRule(t, DomainFull, "www.example.com"),
		mustRule(t, DomainSuffix, "tracker.example.org"),
		mustRule(t, DomainSuffix, "ads.io"),
		mustRule(t, DomainFull, "a.example.com"),
	} {
		_ = rs.Add(r)
	}
	rs.Sort()

	want := []string{"ads.io", "tracker.example.org", "a.example.com", "www.example.com"}
	var got []string
	for _, r := range rs.Payload {
		got = append(got, r.Payload)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order=%v, want=%v", got, want)
	}
	if rs.Payload[0].Kind != DomainSuffix || rs.Payload[2].Kind != DomainFull {
		t.Fatalf("suffix rules must precede full rules")
	}
}

func TestRuleSet_DedupSubsumption(t *testing.T) {
	rs, _ := NewRuleSet(SetDomain, nil)
	_ = rs.Add(mustRule(t, DomainFull, "www.example.com"))
	_ = rs.Add(mustRule(t, DomainSuffix, "example.com"))
	_ = rs.Add(mustRule(t, DomainSuffix, "cdn.example.com"))
	_ = rs.Add(mustRule(t, DomainFull, "example.com"))

	rs.Dedup()

	if rs.Len() != 1 {
		t.Fatalf("len=%d, want=1, payload=%v", rs.Len(), rs.Payload)
	}
	if got := rs.Payload[0]; got.Kind != DomainSuffix || got.Payload != "example.com" {
		t.Fatalf("kept=%v, want DomainSuffix example.com", got)
	}
}

func TestRuleSet_DedupUnrelatedSurvive(t *testing.T) {
	rs, _ := NewRuleSet(SetDomain, nil)
	_ = rs.Add(mustRule(t, DomainSuffix, "a.com"))
	_ = rs.Add(mustRule(t, DomainSuffix, "b.com"))

	rs.Dedup()
	if rs.Len() != 2 {
		t.Fatalf("unrelated suffixes must both survive, len=%d", rs.Len())
	}
}

func TestRuleSet_DedupIdempotent(t *testing.T) {
	rs, _ := NewRuleSet(SetDomain, nil)
	for _, payload := range []string{"example.com", "www.example.com", "b.org", "cdn.b.org"} {
		_ = rs.Add(mustRule(t, DomainSuffix, payload))
	}
	rs.Dedup()
	once := rs.Clone()
	rs.Dedup()
	if !reflect.DeepEqual(once.Payload, rs.Payload) {
		t.Fatalf("dedup must be idempotent: %v vs %v", once.Payload, rs.Payload)
	}
}

func TestRuleSet_CombinedRefusesDedup(t *testing.T) {
	rs, _ := NewRuleSet(SetCombined, nil)
	_ = rs.Add(mustRule(t, IPCIDR, "203.0.113.0/24"))
	_ = rs.Add(mustRule(t, DomainSuffix, "example.com"))
	_ = rs.Add(mustRule(t, DomainFull, "www.example.com"))

	before := rs.Clone()
	rs.Dedup()
	rs.Sort()
	if !reflect.DeepEqual(before.Payload, rs.Payload) {
		t.Fatalf("Combined ruleset ordering must be preserved")
	}
}

func TestRuleSet_RemoveByIdentity(t *testing.T) {
	rs, _ := NewRuleSet(SetDomain, nil)
	_ = rs.Add(mustTagged(t, DomainFull, "www.example.com", "cn"))

	if !rs.Remove(mustRule(t, DomainFull, "www.example.com")) {
		t.Fatalf("remove must match by identity regardless of tag")
	}
	if rs.Remove(mustRule(t, DomainFull, "www.example.com")) {
		t.Fatalf("second remove must report absence")
	}
}

func mustTagged(t *testing.T, kind Kind, payload, tag string) Rule {
	t.Helper()
	r, err := NewTagged(kind, payload, tag)
	if err != nil {
		t.Fatalf("NewTagged(%s, %q, %q): %v", kind, payload, tag, err)
	}
	return r
}
