package model

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
)

// SetKind declares what a RuleSet may contain.
type SetKind int

const (
	SetDomain SetKind = iota
	SetIPCIDR
	SetCombined
)

func (k SetKind) String() string {
	switch k {
	case SetDomain:
		return "Domain"
	case SetIPCIDR:
		return "IPCIDR"
	case SetCombined:
		return "Combined"
	default:
		return "SetKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// accepts reports whether a rule of kind rk may live in a set of kind k.
func (k SetKind) accepts(rk Kind) bool {
	switch k {
	case SetDomain:
		return rk.IsDomain()
	case SetIPCIDR:
		return rk == IPCIDR || rk == IPCIDR6
	case SetCombined:
		return true
	default:
		return false
	}
}

// RuleSet is an ordered collection of rules with a declared homogeneity kind.
// Insertion order is only significant before Sort; Combined sets are never
// reordered because their ordering is caller-managed routing semantics.
//
// A RuleSet is not safe for concurrent writers; the pipeline is sequential.
type RuleSet struct {
	Kind    SetKind
	Payload []Rule
}

// NewRuleSet builds a set of the given kind, validating every initial rule
// against the homogeneity invariant.
func NewRuleSet(kind SetKind, payload []Rule) (*RuleSet, error) {
	rs := &RuleSet{Kind: kind, Payload: make([]Rule, 0, len(payload))}
	for _, r := range payload {
		if err := rs.Add(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

func (rs *RuleSet) Len() int { return len(rs.Payload) }

// Add appends a rule, rejecting kinds the set does not accept. The set is
// unchanged on error.
func (rs *RuleSet) Add(r Rule) error {
	if !rs.Kind.accepts(r.Kind) {
		return &RuleError{
			Code:    "KIND_MISMATCH",
			Message: fmt.Sprintf("%s-kind rule found in a %s-kind ruleset", r.Kind, rs.Kind),
		}
	}
	rs.Payload = append(rs.Payload, r)
	return nil
}

// Contains tests membership by identity (kind and payload, tag ignored).
func (rs *RuleSet) Contains(r Rule) bool {
	for _, got := range rs.Payload {
		if got.Equal(r) {
			return true
		}
	}
	return false
}

// Remove deletes the first rule equal to r by identity and reports whether
// anything was removed.
func (rs *RuleSet) Remove(r Rule) bool {
	for i, got := range rs.Payload {
		if got.Equal(r) {
			rs.Payload = append(rs.Payload[:i], rs.Payload[i+1:]...)
			return true
		}
	}
	return false
}

// Union merges other into rs, skipping rules already present by identity.
// The receiver's kind still gates every insertion.
func (rs *RuleSet) Union(other *RuleSet) error {
	seen := make(map[Key]struct{}, len(rs.Payload))
	for _, r := range rs.Payload {
		seen[r.Key()] = struct{}{}
	}
	for _, r := range other.Payload {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		if err := rs.Add(r); err != nil {
			return err
		}
		seen[r.Key()] = struct{}{}
	}
	return nil
}

// Clone returns an independent copy sharing no slice storage.
func (rs *RuleSet) Clone() *RuleSet {
	payload := make([]Rule, len(rs.Payload))
	copy(payload, rs.Payload)
	return &RuleSet{Kind: rs.Kind, Payload: payload}
}

// Sort orders the payload canonically: domain suffixes before full domains,
// shorter payloads before longer ones, then lexicographically; IP rules sort
// by their literal payload. Combined sets are left untouched.
func (rs *RuleSet) Sort() {
	if rs.Kind == SetCombined {
		slog.Warn("Combined-kind ruleset may be ordered, sort skipped")
		return
	}
	sort.SliceStable(rs.Payload, func(i, j int) bool {
		return sortKeyLess(rs.Payload[i], rs.Payload[j])
	})
}

func sortKeyLess(a, b Rule) bool {
	ga, gb := sortGroup(a.Kind), sortGroup(b.Kind)
	if ga != gb {
		return ga < gb
	}
	if ga < 2 && len(a.Payload) != len(b.Payload) {
		// Shorter suffixes first so a keeper is always seen before
		// anything it subsumes.
		return len(a.Payload) < len(b.Payload)
	}
	return a.Payload < b.Payload
}

func sortGroup(k Kind) int {
	switch k {
	case DomainSuffix:
		return 0
	case DomainFull:
		return 1
	default:
		return 2
	}
}

// Dedup sorts the set and removes every rule already covered by a kept one
// under Rule.Includes. Sorting first makes a single pass sufficient: a
// general suffix is always considered before the entries it subsumes.
// Combined sets are left untouched.
func (rs *RuleSet) Dedup() {
	if rs.Kind == SetCombined {
		slog.Warn("Combined-kind ruleset may be ordered, dedup skipped")
		return
	}
	rs.Sort()
	kept := make([]Rule, 0, len(rs.Payload))
	for _, candidate := range rs.Payload {
		unique := true
		for _, keeper := range kept {
			if keeper.Includes(candidate) {
				unique = false
				slog.Debug("rule removed as duplicate",
					"rule", candidate.String(), "covered_by", keeper.String())
				break
			}
		}
		if unique {
			kept = append(kept, candidate)
		}
	}
	rs.Payload = kept
}
