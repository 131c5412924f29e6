// Package patch overlays hand-curated add/remove diffs onto a ruleset.
//
// A patch is a plain text file of ADD:<value> / REM:<value> lines, where a
// leading dot on the value marks a domain suffix. A missing patch file is a
// no-op, not an error: not every generated ruleset needs corrections.
package patch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vuong2023/Rules/internal/model"
)

// DefaultDir is where patches live unless the caller overrides the location.
const DefaultDir = "source/patches"

// PatchError is returned for malformed patch lines.
type PatchError struct {
	Code    string
	Message string
	Line    int
	Cause   error
}

func (e *PatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *PatchError) Unwrap() error { return e.Cause }

// Apply loads "<name>.txt" from overrideDir (or DefaultDir when empty) and
// applies it to rs in file order, so a later REM sees the effect of an
// earlier ADD. Duplicate adds and absent removes are warned about and
// skipped; applying the same patch twice equals applying it once.
func Apply(rs *model.RuleSet, name string, overrideDir string) (*model.RuleSet, error) {
	dir := overrideDir
	if dir == "" {
		dir = DefaultDir
	}
	filename := name + ".txt"

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		slog.Warn("patch not found", "patch", filename)
		return rs, nil
	}
	slog.Info("applying patch", "patch", filename)

	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		op, value, ok := strings.Cut(line, ":")
		if !ok || value == "" {
			return rs, &PatchError{
				Code:    "PATCH_PARSE_ERROR",
				Message: fmt.Sprintf("malformed patch line: %q", line),
				Line:    i + 1,
			}
		}

		kind := model.DomainFull
		if strings.HasPrefix(value, ".") {
			kind = model.DomainSuffix
			value = strings.TrimLeft(value, ".")
		}
		r, err := model.New(kind, value)
		if err != nil {
			return rs, &PatchError{
				Code:    "PATCH_PARSE_ERROR",
				Message: fmt.Sprintf("invalid patch value: %q", value),
				Line:    i + 1,
				Cause:   err,
			}
		}

		switch op {
		case "ADD":
			if rs.Contains(r) {
				slog.Warn("patch add already present", "rule", r.String())
				continue
			}
			if err := rs.Add(r); err != nil {
				return rs, err
			}
			slog.Debug("patch rule added", "rule", r.String())
		case "REM":
			if !rs.Remove(r) {
				slog.Warn("patch remove not found", "rule", r.String())
				continue
			}
			slog.Debug("patch rule removed", "rule", r.String())
		default:
			return rs, &PatchError{
				Code:    "PATCH_PARSE_ERROR",
				Message: fmt.Sprintf("unknown patch operation: %q", op),
				Line:    i + 1,
			}
		}
	}

	slog.Info("patch applied", "patch", filename)
	return rs, nil
}
