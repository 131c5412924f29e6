// Package cidr handles raw CIDR sources: plain prefix dumps, RIR
// delegated-stats files, and aggregation of the resulting prefix lists.
package cidr

import (
	"log/slog"
	"math/bits"
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/vuong2023/Rules/internal/model"
)

// ParsePlain parses a plain prefix-per-line dump, skipping comments and
// blanks. Malformed lines are skipped with a debug record.
func ParsePlain(lines []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := netip.ParsePrefix(line)
		if err != nil {
			slog.Debug("malformed prefix line, skipped", "line", raw)
			continue
		}
		out = append(out, p.Masked())
	}
	return out
}

// ParseDelegated extracts prefixes from an RIR delegated-stats file
// (fields: registry|cc|type|start|value|date|status). For ipv4 records the
// value is an address count and must be a power of two; for ipv6 it is the
// prefix length. Records for other registries/countries/families and
// malformed lines are skipped.
func ParseDelegated(lines []string, registry, cc, family string) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 5 || parts[0] != registry || parts[1] != cc || parts[2] != family {
			continue
		}

		addr, err := netip.ParseAddr(parts[3])
		if err != nil {
			slog.Debug("malformed delegated-stats record, skipped", "line", raw)
			continue
		}

		var plen int
		switch family {
		case "ipv4":
			count, err := strconv.ParseUint(parts[4], 10, 32)
			if err != nil || count == 0 || count&(count-1) != 0 {
				slog.Debug("non-power-of-two ipv4 allocation, skipped", "line", raw)
				continue
			}
			plen = 32 - bits.TrailingZeros64(count)
		case "ipv6":
			plen, err = strconv.Atoi(parts[4])
			if err != nil {
				slog.Debug("malformed delegated-stats record, skipped", "line", raw)
				continue
			}
		default:
			continue
		}

		p, err := addr.Prefix(plen)
		if err != nil {
			slog.Debug("malformed delegated-stats record, skipped", "line", raw)
			continue
		}
		out = append(out, p)
	}
	return out
}

// Aggregate returns the minimal prefix list covering exactly the same
// address space: contained prefixes are dropped, then sibling pairs are
// merged into their parent until nothing changes.
func Aggregate(prefixes []netip.Prefix) []netip.Prefix {
	if len(prefixes) == 0 {
		return nil
	}

	ps := make([]netip.Prefix, len(prefixes))
	for i, p := range prefixes {
		ps[i] = p.Masked()
	}
	sortPrefixes(ps)

	// Drop contained prefixes. After sorting, any prefix containing ps[i]
	// is the most recently kept one.
	kept := ps[:1]
	for _, p := range ps[1:] {
		last := kept[len(kept)-1]
		if last.Contains(p.Addr()) && last.Bits() <= p.Bits() {
			continue
		}
		kept = append(kept, p)
	}

	// Merge sibling pairs bottom-up until a fixpoint.
	for {
		merged := false
		out := kept[:0]
		for i := 0; i < len(kept); {
			if i+1 < len(kept) {
				if parent, ok := mergeSiblings(kept[i], kept[i+1]); ok {
					out = append(out, parent)
					i += 2
					merged = true
					continue
				}
			}
			out = append(out, kept[i])
			i++
		}
		kept = out
		if !merged {
			return kept
		}
	}
}

// mergeSiblings merges a and b when they are the two halves of the same
// parent prefix, with a being the lower half.
func mergeSiblings(a, b netip.Prefix) (netip.Prefix, bool) {
	if a.Bits() != b.Bits() || a.Bits() == 0 || a.Addr().Is4() != b.Addr().Is4() {
		return netip.Prefix{}, false
	}
	parent, err := a.Addr().Prefix(a.Bits() - 1)
	if err != nil {
		return netip.Prefix{}, false
	}
	if parent.Addr() != a.Addr() {
		// a is the upper sibling; its parent starts below it.
		return netip.Prefix{}, false
	}
	other, err := b.Addr().Prefix(b.Bits() - 1)
	if err != nil || other != parent || a == b {
		return netip.Prefix{}, false
	}
	return parent, true
}

func sortPrefixes(ps []netip.Prefix) {
	sort.Slice(ps, func(i, j int) bool {
		if c := ps[i].Addr().Compare(ps[j].Addr()); c != 0 {
			return c < 0
		}
		return ps[i].Bits() < ps[j].Bits()
	})
}

// RuleSet builds an IPCIDR-kind ruleset from prefixes, choosing the rule
// kind per address family.
func RuleSet(prefixes []netip.Prefix) (*model.RuleSet, error) {
	rs, _ := model.NewRuleSet(model.SetIPCIDR, nil)
	for _, p := range prefixes {
		kind := model.IPCIDR
		if p.Addr().Is6() {
			kind = model.IPCIDR6
		}
		r, err := model.New(kind, p.String())
		if err != nil {
			return nil, err
		}
		if err := rs.Add(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}
