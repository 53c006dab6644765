// Package report renders the Issue Tracker's state to a Markdown file and
// writes it atomically, grounded on vjache-cie's manifest temp-file+rename
// save pattern (spec.md §4.F).
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/duskforge/vigil/internal/issues"
)

// ReportFilename and BakFilename are the scanner-owned names the File
// Filter must always exclude (spec.md §4.A).
const (
	ReportFilename = "code_scanner_results.md"
	BakFilename    = ReportFilename + ".bak"
	LogFilename    = "code_scanner.log"
)

// OwnedFilenames lists the file names vigil owns, which the File Filter
// excludes unconditionally at repo root so vigil's own output is never
// treated as a change to re-audit. The report and its backup are written at
// repo root; the supervisor writes the log under .vigil/ instead.
func OwnedFilenames() []string {
	return []string{ReportFilename, BakFilename, LogFilename}
}

// Writer renders and atomically persists the report at a fixed path.
type Writer struct {
	path string
}

// New creates a Writer for a report file rooted at repoDir.
func New(repoDir string) *Writer {
	return &Writer{path: filepath.Join(repoDir, ReportFilename)}
}

// Path returns the report's on-disk path.
func (w *Writer) Path() string { return w.path }

// Rotate appends an existing report's full text to its .bak sibling under a
// "## Previous run ended at <RFC3339>" header (the report's last
// modification time), then removes the report, per spec.md §4.I's ordered
// startup sequence (rotate before the first scan). A missing report is not
// an error.
func (w *Writer) Rotate() error {
	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	bakPath := filepath.Join(filepath.Dir(w.path), BakFilename)
	bak, err := os.OpenFile(bakPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("## Previous run ended at %s\n\n", info.ModTime().UTC().Format(time.RFC3339))
	if _, err := bak.WriteString(header + string(data) + "\n"); err != nil {
		bak.Close()
		return err
	}
	if err := bak.Close(); err != nil {
		return err
	}
	return os.Remove(w.path)
}

// WriteEmpty creates a fresh, empty report at startup (spec.md §4.I).
func (w *Writer) WriteEmpty() error {
	return w.write(nil, time.Time{})
}

// Write renders the current issue snapshot and atomically replaces the
// report file (temp file + rename, so a concurrent reader — a human with
// the file open, or a tool tailing it — never observes a half-written
// document).
func (w *Writer) Write(snapshot []issues.FileIssues, generatedAt time.Time) error {
	return w.write(snapshot, generatedAt)
}

func (w *Writer) write(snapshot []issues.FileIssues, generatedAt time.Time) error {
	data := []byte(Render(snapshot, generatedAt))

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".vigil-report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp report: %w", err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename report into place: %w", err)
	}
	return nil
}

// Render produces the report's Markdown body, grouping issues by file with
// OPEN issues first and RESOLVED issues kept visible beneath them, per
// spec.md §4.F's fixed layout.
func Render(snapshot []issues.FileIssues, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# Code Scanner Results\n\n")
	if !generatedAt.IsZero() {
		fmt.Fprintf(&b, "_Last updated: %s_\n\n", generatedAt.UTC().Format(time.RFC3339))
	}

	if len(snapshot) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	for _, fi := range snapshot {
		fmt.Fprintf(&b, "## %s\n\n", fi.File)
		for _, is := range fi.Issues {
			renderIssue(&b, is)
		}
	}

	return b.String()
}

func renderIssue(b *strings.Builder, is issues.Issue) {
	fmt.Fprintf(b, "### Line %d — %s\n\n", is.Line, is.Status)
	fmt.Fprintf(b, "%s\n\n", is.Description)
	if is.SuggestedFix != "" {
		fmt.Fprintf(b, "**Suggested fix:**\n\n```\n%s\n```\n\n", is.SuggestedFix)
	}
	fmt.Fprintf(b, "_First seen: %s_\n\n", is.FirstSeen.UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")
}
