package gitwatch

import (
	"os"
	"path/filepath"
)

// conflicted reports whether gitDir shows an in-progress merge or rebase,
// per spec.md §4.B.1: the Watcher must not hand the Scanner a ChangeSet
// while the tree is in one of these transient states.
func conflicted(gitDir string) bool {
	for _, name := range []string{"MERGE_HEAD", "REBASE_HEAD", "rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(gitDir, name)); err == nil {
			return true
		}
	}
	return false
}
