package model

import (
	"errors"
	"testing"
)

func TestNew_DomainValidation(t *testing.T) {
	bad := []string{
		"",
		"ads.example.com/path",
		"*.example.com",
		"example_tracker.com",
		"-example.com",
		"example.com-",
		"example.com.",
		"198.51.100.7",
		"host name.com",
	}
	for _, payload := range bad {
		_, err := New(DomainSuffix, payload)
		var re *RuleError
		if !errors.As(err, &re) {
			t.Fatalf("payload=%q: expected *RuleError, got %T: %v", payload, err, err)
		}
		if re.Code != "INVALID_DOMAIN" {
			t.Fatalf("payload=%q: code=%q, want=%q", payload, re.Code, "INVALID_DOMAIN")
		}
	}

	good := []string{"example.com", "sub.example.co.uk", "0.example.com", "xn--fiq228c.cn"}
	for _, payload := range good {
		if _, err := New(DomainFull, payload); err != nil {
			t.Fatalf("payload=%q: unexpected error: %v", payload, err)
		}
	}
}

func TestNew_CIDRValidation(t *testing.T) {
	if _, err := New(IPCIDR, "203.0.113.0/24"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(IPCIDR, "203.0.113.7"); err != nil {
		t.Fatalf("bare IPv4 should validate: %v", err)
	}
	if _, err := New(IPCIDR6, "2001:db8::/32"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		kind    Kind
		payload string
	}{
		{IPCIDR, "2001:db8::/32"},
		{IPCIDR6, "203.0.113.0/24"},
		{IPCIDR, "not-an-ip"},
		{IPCIDR, "203.0.113.0/33"},
	}
	for _, tc := range cases {
		_, err := New(tc.kind, tc.payload)
		var re *RuleError
		if !errors.As(err, &re) {
			t.Fatalf("kind=%s payload=%q: expected *RuleError, got %T: %v", tc.kind, tc.payload, err, err)
		}
		if re.Code != "INVALID_CIDR" {
			t.Fatalf("kind=%s payload=%q: code=%q, want=%q", tc.kind, tc.payload, re.Code, "INVALID_CIDR")
		}
	}
}

func TestRule_IdentityIgnoresTag(t *testing.T) {
	a, err := NewTagged(DomainSuffix, "example.com", "cn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := New(DomainSuffix, "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("rules differing only by tag must be equal")
	}
	if a.Key() != b.Key() {
		t.Fatalf("keys must match: %v vs %v", a.Key(), b.Key())
	}
}

func TestRule_Includes(t *testing.T) {
	suffix := mustRule(t, DomainSuffix, "example.com")
	full := mustRule(t, DomainFull, "www.example.com")
	fullSame := mustRule(t, DomainFull, "example.com")
	other := mustRule(t, DomainSuffix, "example.org")
	cidr := mustRule(t, IPCIDR, "203.0.113.0/24")

	if !suffix.Includes(full) {
		t.Fatalf("suffix must cover its subdomains")
	}
	if !suffix.Includes(fullSame) {
		t.Fatalf("suffix must cover the exact domain")
	}
	if suffix.Includes(other) {
		t.Fatalf("unrelated domains must not be covered")
	}
	if full.Includes(suffix) {
		t.Fatalf("full rule covers only itself")
	}
	if suffix.Includes(cidr) || cidr.Includes(suffix) {
		t.Fatalf("no inclusion across the domain/IP boundary")
	}
	// "notexample.com" is not a subdomain of "example.com".
	if suffix.Includes(mustRule(t, DomainFull, "notexample.com")) {
		t.Fatalf("suffix matching must be label-aligned")
	}
}

func mustRule(t *testing.T, kind Kind, payload string) Rule {
	t.Helper()
	r, err := New(kind, payload)
	if err != nil {
		t.Fatalf("New(%s, %q): %v", kind, payload, err)
	}
	return r
}
