package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/duskforge/vigil/internal/issues"
)

func TestRenderEmptySnapshot(t *testing.T) {
	out := Render(nil, time.Time{})
	if !strings.Contains(out, "No issues found.") {
		t.Errorf("expected empty-state message, got %q", out)
	}
}

func TestRenderGroupsByFile(t *testing.T) {
	now := time.Now()
	snap := []issues.FileIssues{
		{File: "a.go", Issues: []issues.Issue{
			{Line: 5, Description: "leak", SuggestedFix: "close()", Status: issues.StatusOpen, FirstSeen: now},
		}},
	}
	out := Render(snap, now)
	if !strings.Contains(out, "## a.go") {
		t.Errorf("expected file heading, got %q", out)
	}
	if !strings.Contains(out, "Line 5") {
		t.Errorf("expected line number in rendering, got %q", out)
	}
}

func TestWriteIsAtomicAndRotatable(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	if err := w.WriteEmpty(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(w.Path()); err != nil {
		t.Fatalf("expected report to exist: %s", err)
	}

	if err := w.Rotate(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, BakFilename)); err != nil {
		t.Fatalf("expected .bak after rotate: %s", err)
	}
	if _, err := os.Stat(w.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected report to be moved away by Rotate, got err=%v", err)
	}

	// A second rotate with no report present must not error.
	if err := w.Rotate(); err != nil {
		t.Fatalf("Rotate on missing report should be a no-op, got %s", err)
	}
}
