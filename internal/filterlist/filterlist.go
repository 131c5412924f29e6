// Package filterlist classifies ad-block filter syntax (EasyList/AdGuard
// style) into plain domain entries. Only domain-anchored network filters are
// kept; cosmetic rules, option-bearing filters and URL patterns are skipped,
// since they cannot be expressed as DNS-level rules.
package filterlist

import (
	"log/slog"
	"strings"

	"github.com/vuong2023/Rules/internal/model"
)

type Action int

const (
	Block Action = iota
	Allow
)

func (a Action) String() string {
	if a == Allow {
		return "allow"
	}
	return "block"
}

// Line is one usable filter entry: an action and a bare domain.
type Line struct {
	Action Action
	Domain string
}

// Parse classifies raw filter-list lines, skipping (at debug level) every
// line that does not reduce to a domain. It never fails: a filter list is
// best-effort input by nature.
func Parse(lines []string) []Line {
	out := make([]Line, 0, len(lines))
	for _, raw := range lines {
		if entry, ok := classify(raw); ok {
			out = append(out, entry)
		} else if strings.TrimSpace(raw) != "" {
			slog.Debug("filter line skipped", "line", raw)
		}
	}
	return out
}

func classify(raw string) (Line, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
		return Line{}, false
	}
	// Option-bearing filters ($third-party, $domain=...) and element hiding
	// rules (##, #@#, #?#) have no DNS-level meaning.
	if strings.Contains(line, "$") || strings.Contains(line, "##") ||
		strings.Contains(line, "#@#") || strings.Contains(line, "#?#") {
		return Line{}, false
	}

	action := Block
	if strings.HasPrefix(line, "@@") {
		action = Allow
		line = strings.TrimPrefix(line, "@@")
	}
	if strings.HasPrefix(line, "^") {
		return Line{}, false
	}

	switch {
	case strings.HasPrefix(line, "||"):
		line = strings.TrimPrefix(line, "||")
	case strings.HasPrefix(line, "|"):
		// Absolute URL anchor, not a domain filter.
		return Line{}, false
	}

	line = strings.TrimPrefix(line, ".")
	line = strings.TrimSuffix(line, "^")
	line = strings.TrimSuffix(line, "/")

	if !model.IsDomain(line) {
		return Line{}, false
	}
	return Line{Action: action, Domain: line}, true
}
