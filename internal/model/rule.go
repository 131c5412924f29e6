package model

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Kind enumerates the rule kinds the pipeline can carry. It is a closed set:
// every switch over Kind handles all four values, so "unsupported kind" is
// unreachable for any Rule built through New.
type Kind int

const (
	DomainSuffix Kind = iota
	DomainFull
	IPCIDR
	IPCIDR6
)

func (k Kind) String() string {
	switch k {
	case DomainSuffix:
		return "DomainSuffix"
	case DomainFull:
		return "DomainFull"
	case IPCIDR:
		return "IPCIDR"
	case IPCIDR6:
		return "IPCIDR6"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsDomain reports whether k matches domains rather than addresses.
func (k Kind) IsDomain() bool { return k == DomainSuffix || k == DomainFull }

// Rule is a single validated matching entry. A Rule built through New or
// NewTagged always holds a payload that satisfies its kind's syntax, so
// downstream stages never re-validate.
type Rule struct {
	Kind    Kind
	Payload string
	Tag     string
}

// Key is the identity of a Rule: kind and payload only. Tag is deliberately
// excluded so a tag-filtered re-import merges cleanly with an untagged one.
type Key struct {
	Kind    Kind
	Payload string
}

// New builds a validated Rule without a tag.
func New(kind Kind, payload string) (Rule, error) {
	return NewTagged(kind, payload, "")
}

// NewTagged builds a validated Rule carrying an optional free-form tag.
func NewTagged(kind Kind, payload string, tag string) (Rule, error) {
	switch kind {
	case DomainSuffix, DomainFull:
		if !IsDomain(payload) {
			return Rule{}, &RuleError{
				Code:    "INVALID_DOMAIN",
				Message: fmt.Sprintf("invalid domain: %q", payload),
			}
		}
	case IPCIDR:
		if err := validateCIDR(payload, false); err != nil {
			return Rule{}, &RuleError{
				Code:    "INVALID_CIDR",
				Message: fmt.Sprintf("invalid IPv4 address or CIDR: %q", payload),
				Hint:    "expected e.g. 203.0.113.0/24",
				Cause:   err,
			}
		}
	case IPCIDR6:
		if err := validateCIDR(payload, true); err != nil {
			return Rule{}, &RuleError{
				Code:    "INVALID_CIDR",
				Message: fmt.Sprintf("invalid IPv6 address or CIDR: %q", payload),
				Hint:    "expected e.g. 2001:db8::/32",
				Cause:   err,
			}
		}
	}
	return Rule{Kind: kind, Payload: payload, Tag: tag}, nil
}

// Key returns the identity of the rule. Two rules with equal keys are the
// same rule regardless of tag.
func (r Rule) Key() Key { return Key{Kind: r.Kind, Payload: r.Payload} }

// Equal reports identity equality: kind and payload, tag ignored.
func (r Rule) Equal(other Rule) bool {
	return r.Kind == other.Kind && r.Payload == other.Payload
}

// Includes reports whether r makes other redundant. A suffix rule covers its
// own payload and every subdomain of it; a full rule covers only itself.
// Kinds never include across the domain/IP boundary.
func (r Rule) Includes(other Rule) bool {
	switch r.Kind {
	case DomainSuffix:
		if !other.Kind.IsDomain() {
			return false
		}
		return r.Payload == other.Payload ||
			strings.HasSuffix(other.Payload, "."+r.Payload)
	case DomainFull:
		return r.Equal(other)
	default:
		return false
	}
}

func (r Rule) String() string {
	tag := r.Tag
	if tag == "" {
		tag = "NONE"
	}
	return fmt.Sprintf("Kind: %q, Payload: %q, Tag: %s", r.Kind, r.Payload, tag)
}

// domainBlacklist holds characters that never appear in a plain hostname.
// Scheme separators, wildcard/regex metacharacters and list syntax all land
// here so that filter-list leftovers are rejected at construction.
const domainBlacklist = "/*=~?#,: ()[]_|@^"

// IsDomain reports whether s is acceptable as a rule's hostname fragment.
// A bare IPv4 literal is not a domain.
func IsDomain(s string) bool {
	if s == "" {
		return false
	}
	if strings.ContainsAny(s, domainBlacklist) {
		return false
	}
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") || strings.HasSuffix(s, ".") {
		return false
	}
	return !isIPv4Literal(s)
}

func isIPv4Literal(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// validateCIDR accepts a CIDR or a bare address, matching upstream list
// conventions where single hosts appear without a prefix length.
func validateCIDR(s string, want6 bool) error {
	var ip net.IP
	if strings.Contains(s, "/") {
		parsed, _, err := net.ParseCIDR(s)
		if err != nil {
			return err
		}
		ip = parsed
	} else {
		ip = net.ParseIP(s)
		if ip == nil {
			return fmt.Errorf("not an IP address: %q", s)
		}
	}
	is4 := ip.To4() != nil
	if want6 && is4 {
		return fmt.Errorf("IPv4 literal in an IPv6 rule: %q", s)
	}
	if !want6 && !is4 {
		return fmt.Errorf("IPv6 literal in an IPv4 rule: %q", s)
	}
	return nil
}
