// Package batch implements the Batch Planner: it packs a check's scanned
// files into context-window-sized batches, falling back to directory-level
// and then per-file partitioning when the whole set won't fit
// (spec.md §4.G).
package batch

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/duskforge/vigil/internal/llm"
)

// TargetFraction is the fraction of the context window budgeted for file
// content in a single batch, leaving headroom for the system prompt, the
// check prompt, and tool-call traffic (spec.md §4.G).
const TargetFraction = 0.55

// File is one candidate file with its content available for measurement.
type File struct {
	Path    string
	Content string
}

// Batch is a packed group of files destined for one LLM conversation.
type Batch struct {
	Files []File
}

// Skipped records a file that could not be placed in any batch because its
// own content alone exceeds the budget.
type Skipped struct {
	Path   string
	Tokens int
}

// Plan packs files into Batches that each fit within target = contextLimit
// * TargetFraction tokens (estimated via llm.EstimateTokens). It tries, in
// order: the whole set in one batch; one batch per immediate parent
// directory when the whole set doesn't fit; and finally per-file packing
// inside a directory group that is still too large. Directory groups are
// not merged upward into their parent directories. A file that alone
// exceeds target is skipped and returned in skipped rather than blocking
// the rest of the plan.
func Plan(files []File, contextLimit int) (batches []Batch, skipped []Skipped) {
	target := int(float64(contextLimit) * TargetFraction)
	if target <= 0 {
		target = 1
	}

	total := 0
	for _, f := range files {
		total += llm.EstimateTokens(f.Content)
	}
	if total <= target {
		if len(files) > 0 {
			batches = append(batches, Batch{Files: files})
		}
		return batches, nil
	}

	return packByDirectory(files, target)
}

// packByDirectory groups files by their immediate parent directory and
// emits each group that fits as one batch; a group that still exceeds
// target is handed to packGreedyPerFile. Only one directory level is
// considered: sibling directories are never combined under a common parent.
func packByDirectory(files []File, target int) (batches []Batch, skipped []Skipped) {
	groups := groupByDirectory(files)

	// Sort by path for deterministic output across runs.
	dirs := make([]string, 0, len(groups))
	for d := range groups {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, d := range dirs {
		group := groups[d]
		groupTokens := 0
		for _, f := range group {
			groupTokens += llm.EstimateTokens(f.Content)
		}
		if groupTokens <= target {
			batches = append(batches, Batch{Files: group})
			continue
		}
		b, s := packGreedyPerFile(group, target)
		batches = append(batches, b...)
		skipped = append(skipped, s...)
	}
	return batches, skipped
}

// groupByDirectory buckets files by their immediate parent directory.
func groupByDirectory(files []File) map[string][]File {
	groups := make(map[string][]File)
	for _, f := range files {
		dir := filepath.ToSlash(filepath.Dir(f.Path))
		groups[dir] = append(groups[dir], f)
	}
	return groups
}

// packGreedyPerFile falls back to one-file-per-batch packing (greedily
// combining adjacent files when they still fit), skipping any single file
// that alone exceeds target.
func packGreedyPerFile(files []File, target int) (batches []Batch, skipped []Skipped) {
	var current []File
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, Batch{Files: current})
			current = nil
			currentTokens = 0
		}
	}

	for _, f := range files {
		tokens := llm.EstimateTokens(f.Content)
		if tokens > target {
			skipped = append(skipped, Skipped{Path: f.Path, Tokens: tokens})
			continue
		}
		if currentTokens+tokens > target {
			flush()
		}
		current = append(current, f)
		currentTokens += tokens
	}
	flush()
	return batches, skipped
}

// CommonPrefix returns the longest shared leading path segment across all
// batch files, used by callers for logging a batch's scope.
func CommonPrefix(b Batch) string {
	if len(b.Files) == 0 {
		return ""
	}
	prefix := filepath.ToSlash(filepath.Dir(b.Files[0].Path))
	for _, f := range b.Files[1:] {
		dir := filepath.ToSlash(filepath.Dir(f.Path))
		prefix = commonPathPrefix(prefix, dir)
	}
	return prefix
}

func commonPathPrefix(a, b string) string {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	var out []string
	for i := 0; i < n; i++ {
		if as[i] != bs[i] {
			break
		}
		out = append(out, as[i])
	}
	return strings.Join(out, "/")
}
