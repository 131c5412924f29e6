package patch

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vuong2023/Rules/internal/model"
)

func writePatch(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write patch: %v", err)
	}
}

func domainSet(t *testing.T, payloads ...string) *model.RuleSet {
	t.Helper()
	rs, _ := model.NewRuleSet(model.SetDomain, nil)
	for _, p := range payloads {
		r, err := model.New(model.DomainFull, p)
		if err != nil {
			t.Fatalf("rule %q: %v", p, err)
		}
		if err := rs.Add(r); err != nil {
			t.Fatalf("add %q: %v", p, err)
		}
	}
	return rs
}

func TestApply_AddRemove(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "reject", `# corrections
ADD:.ads.example.com
ADD:track.example.org
REM:falsepositive.example.net
`)

	rs := domainSet(t, "falsepositive.example.net")
	rs, err := Apply(rs, "reject", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	suffix, _ := model.New(model.DomainSuffix, "ads.example.com")
	full, _ := model.New(model.DomainFull, "track.example.org")
	removed, _ := model.New(model.DomainFull, "falsepositive.example.net")

	if !rs.Contains(suffix) || !rs.Contains(full) {
		t.Fatalf("patch adds missing: %v", rs.Payload)
	}
	if rs.Contains(removed) {
		t.Fatalf("patch remove not applied")
	}
}

func TestApply_MissingPatchIsNoop(t *testing.T) {
	rs := domainSet(t, "example.com")
	before := rs.Clone()
	rs, err := Apply(rs, "nonexistent", t.TempDir())
	if err != nil {
		t.Fatalf("missing patch must not error: %v", err)
	}
	if !reflect.DeepEqual(before.Payload, rs.Payload) {
		t.Fatalf("missing patch must leave the set unchanged")
	}
}

func TestApply_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "p", "ADD:a.example.com\nREM:gone.example.com\n")

	rs := domainSet(t, "b.example.com")
	rs, err := Apply(rs, "p", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	once := rs.Clone()

	rs, err = Apply(rs, "p", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(once.Payload, rs.Payload) {
		t.Fatalf("applying a patch twice must equal applying it once")
	}
}

func TestApply_FileOrder(t *testing.T) {
	dir := t.TempDir()
	// The REM sees the ADD that precedes it in the same patch.
	writePatch(t, dir, "p", "ADD:x.example.com\nREM:x.example.com\n")

	rs := domainSet(t)
	rs, err := Apply(rs, "p", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Len() != 0 {
		t.Fatalf("len=%d, want=0: %v", rs.Len(), rs.Payload)
	}
}

func TestApply_MalformedLine(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "p", "FROB:x.example.com\n")

	_, err := Apply(domainSet(t), "p", dir)
	var pe *PatchError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PatchError, got %T: %v", err, err)
	}
	if pe.Code != "PATCH_PARSE_ERROR" || pe.Line != 1 {
		t.Fatalf("code=%q line=%d, want PATCH_PARSE_ERROR line 1", pe.Code, pe.Line)
	}
}
