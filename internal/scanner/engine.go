// Package scanner implements the Scanner Engine: it consumes ChangeSets
// from the Git Watcher's Cell, builds a check schedule, runs each check
// serially through the LLM Client and AI Tool Executor, and maintains the
// Issue Tracker and Report Writer (spec.md §4.H).
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/duskforge/vigil/internal/batch"
	"github.com/duskforge/vigil/internal/config"
	"github.com/duskforge/vigil/internal/fileutil"
	"github.com/duskforge/vigil/internal/gitwatch"
	"github.com/duskforge/vigil/internal/issues"
	"github.com/duskforge/vigil/internal/llm"
	"github.com/duskforge/vigil/internal/report"
	"github.com/duskforge/vigil/internal/tools"
)

// RetryDelay is how long the Scanner waits before retrying a check after a
// TransientError from the LLM Client (spec.md §4.C.6).
const RetryDelay = 10 * time.Second

// SystemPrompt is prepended to every check's conversation.
const SystemPrompt = `You are a static-analysis assistant auditing source files against one review instruction. Use the provided tools to inspect surrounding context as needed. When finished, reply with a JSON object of the form {"issues": [{"file": "...", "line_number": 0, "description": "...", "suggested_fix": "..."}]}. If the instruction finds nothing to flag, reply with {"issues": []}.`

// Engine drives vigil's continuous re-audit loop for one repository.
type Engine struct {
	repoDir  string
	cfg      *config.Config
	cell     *gitwatch.Cell
	store    *issues.Store
	writer   *report.Writer
	client   llm.Client
	executor *tools.Executor
}

// New builds a Scanner Engine for one repository.
func New(repoDir string, cfg *config.Config, cell *gitwatch.Cell, store *issues.Store, writer *report.Writer, client llm.Client, executor *tools.Executor) *Engine {
	return &Engine{
		repoDir:  repoDir,
		cfg:      cfg,
		cell:     cell,
		store:    store,
		writer:   writer,
		client:   client,
		executor: executor,
	}
}

// Run blocks until ctx is cancelled, repeatedly waiting for a ChangeSet and
// running the watermark pass loop over the schedule it implies.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs, ok := e.cell.TryTake()
			if !ok {
				continue
			}
			if cs.Conflicted {
				continue // spec.md §4.B.1: never act on a mid-merge/rebase tree
			}
			e.runToQuiescence(ctx, cs)
		}
	}
}

// runToQuiescence runs the watermark pass-restart algorithm (spec.md §4.H)
// over the schedule built from cs: the full schedule runs once; if a pass
// observes that a file visited earlier in that same pass has since changed,
// the next pass re-runs only the stale prefix [0, k] against a fresher
// baseline, rather than the whole schedule. Repeats until a pass completes
// with no staleness detected, then resolves issues scoped to every file the
// schedule covered and writes the report.
func (e *Engine) runToQuiescence(ctx context.Context, cs *gitwatch.ChangeSet) {
	files := make([]string, 0, len(cs.Files))
	for f := range cs.Files {
		files = append(files, f)
	}
	schedule := buildSchedule(e.cfg, files)

	baseline := cs
	end := len(schedule) - 1 // inclusive upper bound of this pass's range
	for end >= 0 {
		if ctx.Err() != nil {
			return
		}
		latest, k := e.runPass(ctx, baseline, schedule[:end+1])
		baseline = latest
		if k < 0 {
			break
		}
		end = k
	}

	e.cell.Sync(baseline)

	scanned := make(map[string]bool, len(files))
	for _, f := range files {
		scanned[f] = true
	}
	e.store.ResolveScoped(scanned)
	e.writeReport()
}

// runPass executes every item in pass in order. Before each item, it peeks
// the Cell for a ChangeSet newer than baseline; if any file already visited
// earlier in this same pass has changed (by content hash, addition, or
// removal), the earliest such observation's index bound is recorded as k —
// once set, it is never raised again within the same pass, since i only
// grows and the first bound already covers every index up to itself. Each
// item still runs against live file content regardless, so index i's own
// results are always fresh; k only flags that indices before i need
// re-verifying. Returns the last ChangeSet observed and k (or -1 if no
// staleness was ever detected).
func (e *Engine) runPass(ctx context.Context, baseline *gitwatch.ChangeSet, pass []checkItem) (latest *gitwatch.ChangeSet, k int) {
	latest = baseline
	k = -1
	visited := make(map[string]bool)

	for i, item := range pass {
		if ctx.Err() != nil {
			return latest, k
		}

		if peek := e.cell.Peek(); peek != nil && peek != latest {
			latest = peek
		}
		if latest != baseline {
			changed := latest.Changed(baseline)
			stale := false
			for f := range visited {
				if changed[f] {
					stale = true
					break
				}
			}
			if stale && k < 0 {
				k = i - 1
			}
		}

		e.runCheck(ctx, item)
		for _, f := range item.Files {
			visited[f] = true
		}
	}
	return latest, k
}

// runCheck runs one CheckRun (one group/prompt pair over every file it
// matched), packing its files through the Batch Planner and retrying on
// TransientError / logging-and-skipping on ProtocolError, per spec.md
// §4.C.6. A CheckRun's batches all ingest before the caller resolves
// anything, so the tracker sees their union atomically (spec.md §4.G).
func (e *Engine) runCheck(ctx context.Context, item checkItem) {
	var files []batch.File
	for _, path := range item.Files {
		content, err := readFileContent(e.repoDir, path)
		if err != nil {
			fileutil.LogWarn("scanner: skipping %s: %s", path, err)
			continue
		}
		files = append(files, batch.File{Path: path, Content: content})
	}

	batches, skipped := batch.Plan(files, e.client.ContextLimit())
	for _, s := range skipped {
		fileutil.LogWarn("scanner: %s exceeds the per-batch token budget (~%d tokens), skipping", s.Path, s.Tokens)
	}

	for _, b := range batches {
		userPrompt := buildUserPrompt(item.CheckPrompt, b)

		var raws []issues.RawIssue
		var err error
		for {
			raws, err = llm.RunCheck(ctx, e.client, SystemPrompt, userPrompt, tools.Specs(), e.executor)
			if err == nil {
				break
			}
			if _, transient := err.(*llm.TransientError); transient {
				fileutil.LogError("check %q on %s failed (transient): %s; retrying in %s", item.CheckPrompt, batch.CommonPrefix(b), err, RetryDelay)
				select {
				case <-ctx.Done():
					return
				case <-time.After(RetryDelay):
				}
				continue
			}
			fileutil.LogError("check %q on %s failed: %s", item.CheckPrompt, batch.CommonPrefix(b), err)
			raws = nil
			break
		}

		e.store.Ingest(raws, item.CheckPrompt, e.repoDir, time.Now())
	}
}

func buildUserPrompt(checkPrompt string, b batch.Batch) string {
	out := "Review instruction: " + checkPrompt + "\n\n"
	for _, f := range b.Files {
		out += "File: " + f.Path + "\n```\n" + f.Content + "\n```\n\n"
	}
	return out
}

func readFileContent(repoDir, relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(repoDir, relPath))
	if err != nil {
		return "", err
	}
	if fileutil.LooksBinary(data) {
		return "", errBinaryFile{path: relPath}
	}
	return string(data), nil
}

type errBinaryFile struct{ path string }

func (e errBinaryFile) Error() string { return e.path + " looks binary" }

func (e *Engine) writeReport() {
	snap := e.store.Snapshot()
	if err := e.writer.Write(snap, time.Now()); err != nil {
		fileutil.LogError("report: write failed: %s", err)
	}
}
