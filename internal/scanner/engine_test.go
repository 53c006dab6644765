package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/duskforge/vigil/internal/config"
	"github.com/duskforge/vigil/internal/gitwatch"
	"github.com/duskforge/vigil/internal/issues"
	"github.com/duskforge/vigil/internal/llm"
	"github.com/duskforge/vigil/internal/report"
	"github.com/duskforge/vigil/internal/tools"
)

// fakeClient answers every Query with an empty issues envelope and calls a
// hook once per Query so the test can publish a ChangeSet mid-pass.
type fakeClient struct {
	onQuery func()
}

func (f *fakeClient) Query(ctx context.Context, messages []llm.Message, specs []llm.ToolSpec, jsonObject bool) (llm.Reply, error) {
	if f.onQuery != nil {
		f.onQuery()
	}
	return llm.Reply{Content: `{"issues": []}`}, nil
}

func (f *fakeClient) ContextLimit() int { return 8000 }

func (f *fakeClient) Probe(ctx context.Context) (llm.ProbeResult, error) { return llm.ProbeResult{}, nil }

func hashOf(content string) string { return content }

func writeRepoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestWatermarkRerunsOnlyStalePrefix exercises spec.md §8 scenario 2: a
// 4-item schedule where, partway through the pass, a file already visited
// earlier is edited. The pass must run to completion (not abort), and the
// next pass must cover only the stale prefix [c0,c1,c2], never c3.
func TestWatermarkRerunsOnlyStalePrefix(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "a.go", "package a\n")
	writeRepoFile(t, dir, "b.go", "package b\n")
	writeRepoFile(t, dir, "c.go", "package c\n")
	writeRepoFile(t, dir, "d.go", "package d\n")

	cfg := &config.Config{Checks: []config.CheckGroup{
		{Patterns: []string{"a.go"}, Prompts: []string{"c0"}},
		{Patterns: []string{"b.go"}, Prompts: []string{"c1"}},
		{Patterns: []string{"c.go"}, Prompts: []string{"c2"}},
		{Patterns: []string{"d.go"}, Prompts: []string{"c3"}},
	}}

	cell := gitwatch.NewCell()
	initial := &gitwatch.ChangeSet{Files: map[string]string{
		"a.go": hashOf("package a\n"),
		"b.go": hashOf("package b\n"),
		"c.go": hashOf("package c\n"),
		"d.go": hashOf("package d\n"),
	}}
	cell.Publish(initial)

	store := issues.NewStore()
	writer := report.New(dir)
	executor := tools.New(dir)

	var executed []string
	edited := false
	client := &fakeClient{}
	client.onQuery = func() {
		// Identify which check is currently running by the number of
		// checks executed so far (engine calls Query once per CheckRun
		// batch here, since every check has exactly one matching file).
		executed = append(executed, fmt.Sprintf("q%d", len(executed)))
		if len(executed) == 3 && !edited {
			// Mid-way through c2 (the 3rd query), edit b.go, which was
			// already visited by c1.
			edited = true
			writeRepoFile(t, dir, "b.go", "package b\n// edited\n")
			next := &gitwatch.ChangeSet{Files: map[string]string{
				"a.go": hashOf("package a\n"),
				"b.go": hashOf("package b\n// edited\n"),
				"c.go": hashOf("package c\n"),
				"d.go": hashOf("package d\n"),
			}}
			cell.Publish(next)
		}
	}

	eng := New(dir, cfg, cell, store, writer, client, executor)

	cs, ok := cell.TryTake()
	if !ok {
		t.Fatal("expected the initial ChangeSet to be pending")
	}
	eng.runToQuiescence(context.Background(), cs)

	// Expected query sequence: pass 1 runs c0,c1,c2,c3 (4 queries); the
	// edit is detected during c2 (3rd query), so pass 2 reruns only
	// c0,c1,c2 (3 more queries) = 7 total, never rerunning c3.
	if len(executed) != 7 {
		t.Fatalf("expected 7 total check executions (4 + stale prefix of 3), got %d: %+v", len(executed), executed)
	}
}
