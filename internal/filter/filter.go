// Package filter implements vigil's single File Filter predicate: the one
// source of exclusion truth, consulted by the Git Watcher on every poll.
// The Scanner Engine only ever sees paths that already passed it (spec.md
// §4.A, §9).
package filter

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/duskforge/vigil/internal/config"
	"github.com/duskforge/vigil/internal/gitutil"
	"github.com/duskforge/vigil/internal/report"
)

// OwnedFilenames are the scanner-owned files excluded unconditionally at
// repo root, so the Report Writer's own writes never self-trigger a rescan.
var OwnedFilenames = report.OwnedFilenames()

// Filter is the built-once-per-scan-cycle exclusion predicate.
type Filter struct {
	repoRoot       string
	dirPatterns    []string // from "/*name*/" groups
	globPatterns   []string // plain glob patterns, e.g. "*.md"
	gitignore      *ignore.GitIgnore
	fallbackRepo   *gitutil.Repo // used only if gitignore is nil
	fallbackCache  map[string]bool
}

// New builds the File Filter for one scan cycle from the config's ignore
// groups (CheckGroups with no prompts) and the repository's gitignore rules.
func New(cfg *config.Config, repoRoot string) (*Filter, error) {
	f := &Filter{
		repoRoot:      repoRoot,
		fallbackCache: make(map[string]bool),
	}

	for _, group := range cfg.Checks {
		if !group.IsIgnoreGroup() {
			continue
		}
		for _, pattern := range group.Patterns {
			if isDirForm(pattern) {
				f.dirPatterns = append(f.dirPatterns, dirFormName(pattern))
			} else {
				f.globPatterns = append(f.globPatterns, pattern)
			}
		}
	}

	lines, err := collectGitignoreLines(repoRoot)
	if err != nil {
		// Fall back to batched `git check-ignore` per spec.md §4.A.3.
		f.fallbackRepo = gitutil.NewRepo(repoRoot)
		return f, nil
	}
	f.gitignore = ignore.CompileIgnoreLines(lines...)

	return f, nil
}

// isDirForm reports whether a pattern uses the "/*name*/" directory form.
func isDirForm(pattern string) bool {
	return strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 2
}

// dirFormName extracts the wildcard-permitting directory-name glob from a
// "/*name*/" pattern (i.e. the text between the leading and trailing slash).
func dirFormName(pattern string) string {
	return strings.Trim(pattern, "/")
}

// Included reports whether path (repo-relative, slash-separated) should
// enter the scan/watch pipeline. It is deterministic for a given Filter and
// should be consulted once per path, at the earliest pipeline entry point.
func (f *Filter) Included(path string) bool {
	path = filepath.ToSlash(path)
	base := filepath.Base(path)

	for _, owned := range OwnedFilenames {
		if base == owned && !strings.Contains(path, "/") {
			return false
		}
	}

	for _, pattern := range f.globPatterns {
		if matchesAnyPathSegment(pattern, path) {
			return false
		}
	}

	for _, dirName := range f.dirPatterns {
		if pathTraversesDir(path, dirName) {
			return false
		}
	}

	if f.gitignore != nil {
		if f.gitignore.MatchesPath(path) {
			return false
		}
		return true
	}

	if f.fallbackRepo != nil {
		if ignored, ok := f.fallbackCache[path]; ok {
			return !ignored
		}
		// Best-effort single-path fallback; batch callers should prefer
		// IncludedBatch to minimize subprocess invocations.
		res, err := f.fallbackRepo.CheckIgnoreBatch([]string{path})
		if err != nil {
			return true
		}
		ignored := res[path]
		f.fallbackCache[path] = ignored
		return !ignored
	}

	return true
}

// IncludedBatch filters a slice of candidate paths in one pass, using a
// single `git check-ignore --stdin` call when the pathspec engine is
// unavailable, per spec.md §4.A.3.
func (f *Filter) IncludedBatch(paths []string) []string {
	if f.gitignore != nil || f.fallbackRepo == nil {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			if f.Included(p) {
				out = append(out, p)
			}
		}
		return out
	}

	// Pre-filter by glob/dir/owned rules (cheap), then batch the remaining
	// candidates through a single check-ignore subprocess call.
	var candidates []string
	preExcluded := make(map[string]bool)
	for _, p := range paths {
		sp := filepath.ToSlash(p)
		excluded := false
		base := filepath.Base(sp)
		for _, owned := range OwnedFilenames {
			if base == owned && !strings.Contains(sp, "/") {
				excluded = true
			}
		}
		for _, pattern := range f.globPatterns {
			if matchesAnyPathSegment(pattern, sp) {
				excluded = true
			}
		}
		for _, dirName := range f.dirPatterns {
			if pathTraversesDir(sp, dirName) {
				excluded = true
			}
		}
		if excluded {
			preExcluded[p] = true
		} else {
			candidates = append(candidates, p)
		}
	}

	ignored, err := f.fallbackRepo.CheckIgnoreBatch(candidates)
	if err != nil {
		ignored = map[string]bool{}
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if preExcluded[p] || ignored[p] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// matchesAnyPathSegment reports whether a comma-split glob pattern matches
// the path itself or its base name (so "*.md" matches "docs/readme.md").
func matchesAnyPathSegment(pattern, path string) bool {
	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
		return true
	}
	return false
}

// pathTraversesDir reports whether any path segment matches the given
// wildcard-permitting directory name glob.
func pathTraversesDir(path, dirNameGlob string) bool {
	for _, segment := range strings.Split(path, "/") {
		if ok, _ := filepath.Match(dirNameGlob, segment); ok {
			return true
		}
	}
	return false
}
