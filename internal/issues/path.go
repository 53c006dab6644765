package issues

import (
	"path/filepath"
	"strings"
)

// sanitizeFilePath converts a model-reported path to a clean, repo-relative
// form, or returns "" if it is empty or escapes the target directory — such
// issues are silently discarded per spec.md §6's wire contract.
func sanitizeFilePath(raw, repoRoot string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	cleaned := filepath.ToSlash(filepath.Clean(raw))
	if strings.HasPrefix(cleaned, "../") || cleaned == ".." || filepath.IsAbs(cleaned) {
		return ""
	}
	if repoRoot != "" {
		abs := filepath.Join(repoRoot, cleaned)
		rootAbs, err := filepath.Abs(repoRoot)
		if err == nil {
			absClean, err2 := filepath.Abs(abs)
			if err2 == nil && !strings.HasPrefix(absClean, rootAbs) {
				return ""
			}
		}
	}
	return cleaned
}
