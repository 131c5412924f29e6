package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vuong2023/Rules/internal/model"
)

// Dump renders rs for the target and writes it to <dstDir>/<name><ext>,
// creating the destination directory on demand. A set kind the target cannot
// represent is a logged skip, not an error.
func Dump(target Target, rs *model.RuleSet, dstDir string, name string) error {
	path := filepath.Join(dstDir, name+target.Ext())
	if !target.known() {
		return &RenderError{
			Code:    "UNSUPPORTED_TARGET",
			Message: fmt.Sprintf("unsupported target: %s", target),
			Path:    path,
		}
	}
	if !target.Supports(rs.Kind) {
		slog.Warn("ruleset kind not representable for target, skipped",
			"name", name, "kind", rs.Kind.String(), "target", string(target))
		return nil
	}

	content, err := Render(target, rs)
	if err != nil {
		var re *RenderError
		if errors.As(err, &re) {
			re.Path = path
		}
		return err
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return &RenderError{
			Code:    "WRITE_FAILED",
			Message: fmt.Sprintf("cannot create output directory %q", dstDir),
			Path:    path,
			Cause:   err,
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &RenderError{
			Code:    "WRITE_FAILED",
			Message: "cannot write ruleset file",
			Path:    path,
			Cause:   err,
		}
	}
	return nil
}

// BatchDump writes rs once per target under <dstRoot>/<target>/.
func BatchDump(rs *model.RuleSet, targets []Target, dstRoot string, name string) error {
	for _, target := range targets {
		if err := Dump(target, rs, filepath.Join(dstRoot, string(target)), name); err != nil {
			return err
		}
	}
	return nil
}
