package gitwatch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/duskforge/vigil/internal/fileutil"
	"github.com/duskforge/vigil/internal/filter"
	"github.com/duskforge/vigil/internal/gitutil"
)

// Watcher assembles ChangeSets for one repository and publishes them to a
// Cell on a fixed cadence (spec.md §4.B).
type Watcher struct {
	repoDir    string
	gitDir     string
	repo       *gitutil.Repo
	filterFunc func() *filter.Filter
	commitRef  string
}

// New creates a Watcher rooted at repoDir. filterFunc is invoked once per
// poll, so edits to .gitignore take effect without restarting the daemon;
// the config it filters with is whatever the caller captured. commitRef, if
// non-empty, is the base commit passed via --commit (spec.md §6); an empty
// commitRef compares against the worktree/index only.
func New(repoDir string, filterFunc func() *filter.Filter, commitRef string) (*Watcher, error) {
	repo := gitutil.NewRepo(repoDir)
	gitDir, err := repo.GitDir()
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(repoDir, gitDir)
	}
	return &Watcher{
		repoDir:    repoDir,
		gitDir:     gitDir,
		repo:       repo,
		filterFunc: filterFunc,
		commitRef:  commitRef,
	}, nil
}

// Poll computes one ChangeSet: it is conflict-checked first, then the union
// of `git status --porcelain=v1 -z` paths, untracked files and, when a base
// commit is set, the paths of `git diff --name-status <base>..HEAD` is
// filtered through the File Filter and content-hashed.
func (w *Watcher) Poll() (*ChangeSet, error) {
	if conflicted(w.gitDir) {
		return &ChangeSet{Conflicted: true}, nil
	}

	statusChanged, err := statusPaths(w.repoDir)
	if err != nil {
		return nil, err
	}
	untracked, err := w.repo.UntrackedFiles()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(statusChanged)+len(untracked))
	var candidates []string
	for _, p := range statusChanged {
		if !seen[p] {
			seen[p] = true
			candidates = append(candidates, p)
		}
	}
	for _, p := range untracked {
		if !seen[p] {
			seen[p] = true
			candidates = append(candidates, p)
		}
	}
	if w.commitRef != "" {
		out, err := w.repo.DiffNameStatus(w.commitRef, "HEAD")
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(out, "\n") {
			fields := strings.Split(line, "\t")
			// The last field is the current path (renames list old then new).
			if p := fields[len(fields)-1]; len(fields) >= 2 && !seen[p] {
				seen[p] = true
				candidates = append(candidates, p)
			}
		}
	}

	f := w.filterFunc()
	included := f.IncludedBatch(candidates)

	files := make(map[string]string, len(included))
	for _, p := range included {
		full := filepath.Join(w.repoDir, p)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue // deleted since status was read, or a directory entry
		}
		hash, err := fileutil.HashFile(full)
		if err != nil {
			continue
		}
		files[p] = hash
	}

	var head string
	if w.commitRef != "" {
		head = w.commitRef
	}

	return &ChangeSet{HeadCommit: head, Files: files}, nil
}
