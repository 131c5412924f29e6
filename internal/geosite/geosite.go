// Package geosite parses the nested-include domain-list source format:
// one entry per line, "full:" for exact domains, "include:" to splice in
// another named list, "@tag" suffixes for selective conversion.
package geosite

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vuong2023/Rules/internal/model"
)

// Loader resolves a referenced list name to its raw lines. Implementations
// wrap whatever store the lists live in; a missing list is a configuration
// problem and must be reported as an error.
type Loader interface {
	Load(name string) ([]string, error)
}

// DirLoader loads lists from files (no extension) under a single directory.
type DirLoader struct {
	Dir string
}

func (l DirLoader) Load(name string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(l.Dir, name))
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), nil
}

// EntryKind is the parse-time kind pair used before conversion to rule kinds.
type EntryKind int

const (
	Suffix EntryKind = iota
	Full
)

func (k EntryKind) String() string {
	if k == Full {
		return "Full"
	}
	return "Suffix"
}

// Entry is one parsed line of a domain list before conversion.
type Entry struct {
	Kind    EntryKind
	Payload string
	Tag     string
}

// ParseError is returned when resolution cannot produce a structurally
// complete result.
//
// Codes:
//   - LIST_NOT_FOUND: an include references a list the loader cannot provide
//   - INCLUDE_CYCLE:  a list transitively includes itself
type ParseError struct {
	Code    string
	Message string
	List    string
	Cause   error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Parse loads the named list and resolves it recursively.
func Parse(loader Loader, name string, excludedImports []string) ([]Entry, error) {
	lines, err := loader.Load(name)
	if err != nil {
		return nil, &ParseError{
			Code:    "LIST_NOT_FOUND",
			Message: fmt.Sprintf("cannot load list %q", name),
			List:    name,
			Cause:   err,
		}
	}
	st := newResolveState(excludedImports)
	st.resolving[name] = true
	if err := st.resolve(loader, lines); err != nil {
		return nil, err
	}
	return st.entries, nil
}

// ParseLines resolves raw lines already in hand; loader serves includes only.
func ParseLines(loader Loader, lines []string, excludedImports []string) ([]Entry, error) {
	st := newResolveState(excludedImports)
	if err := st.resolve(loader, lines); err != nil {
		return nil, err
	}
	return st.entries, nil
}

// resolveState threads the accumulator and the exclusion/cycle bookkeeping
// through the recursion; nothing is process-global.
type resolveState struct {
	excluded  map[string]struct{}
	resolving map[string]bool
	seen      map[Entry]struct{}
	entries   []Entry
}

func newResolveState(excludedImports []string) *resolveState {
	st := &resolveState{
		excluded:  make(map[string]struct{}, len(excludedImports)),
		resolving: make(map[string]bool),
		seen:      make(map[Entry]struct{}),
	}
	for _, name := range excludedImports {
		st.excluded[name] = struct{}{}
	}
	return st
}

func (st *resolveState) resolve(loader Loader, lines []string) error {
	for _, raw := range lines {
		line := strings.TrimSpace(strings.SplitN(raw, "#", 2)[0])
		if line == "" {
			continue
		}

		var tag string
		if i := strings.IndexByte(line, '@'); i >= 0 {
			tag = strings.TrimSpace(line[i+1:])
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			slog.Debug("unsupported line, skipped", "line", raw)
			continue
		}

		switch {
		case !strings.Contains(line, ":"):
			st.add(Entry{Kind: Suffix, Payload: line, Tag: tag})
		case strings.HasPrefix(line, "full:"):
			st.add(Entry{Kind: Full, Payload: strings.TrimPrefix(line, "full:"), Tag: tag})
		case strings.HasPrefix(line, "include:"):
			name := strings.TrimPrefix(line, "include:")
			if _, ok := st.excluded[name]; ok {
				slog.Debug("import hit exclusion, skipped", "list", name)
				continue
			}
			if st.resolving[name] {
				return &ParseError{
					Code:    "INCLUDE_CYCLE",
					Message: fmt.Sprintf("list %q transitively includes itself", name),
					List:    name,
				}
			}
			sub, err := loader.Load(name)
			if err != nil {
				return &ParseError{
					Code:    "LIST_NOT_FOUND",
					Message: fmt.Sprintf("cannot load included list %q", name),
					List:    name,
					Cause:   err,
				}
			}
			st.resolving[name] = true
			if err := st.resolve(loader, sub); err != nil {
				return err
			}
			delete(st.resolving, name)
			slog.Debug("imported list", "list", name)
		default:
			slog.Debug("unsupported line, skipped", "line", raw)
		}
	}
	return nil
}

func (st *resolveState) add(e Entry) {
	if _, ok := st.seen[e]; ok {
		return
	}
	st.seen[e] = struct{}{}
	st.entries = append(st.entries, e)
}

// Convert turns resolved entries into a Domain-kind ruleset, dropping every
// entry whose tag is excluded. Invalid payloads abort the conversion: a
// half-built ruleset from a trusted list is worse than a loud failure.
func Convert(entries []Entry, excludedTags []string) (*model.RuleSet, error) {
	skip := make(map[string]struct{}, len(excludedTags))
	for _, tag := range excludedTags {
		skip[tag] = struct{}{}
	}

	rs, _ := model.NewRuleSet(model.SetDomain, nil)
	for _, e := range entries {
		if _, ok := skip[e.Tag]; ok {
			slog.Debug("entry dropped by tag filter", "payload", e.Payload, "tag", e.Tag)
			continue
		}
		kind := model.DomainSuffix
		if e.Kind == Full {
			kind = model.DomainFull
		}
		r, err := model.NewTagged(kind, e.Payload, e.Tag)
		if err != nil {
			return nil, err
		}
		if err := rs.Add(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}
