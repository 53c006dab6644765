package scanner

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/duskforge/vigil/internal/config"
)

// checkItem is one (group, prompt) unit of the watermark schedule: a single
// CheckRun of one check prompt against every file in the ChangeSet whose
// group's patterns select it. A CheckRun's files may span multiple Batch
// Planner batches; the Issue Tracker sees their union atomically once all
// of a CheckRun's batches have been ingested (spec.md §4.G).
type checkItem struct {
	Files       []string
	CheckPrompt string
	GroupIndex  int
}

// buildSchedule computes the ordered list of CheckRuns over the files named
// in a ChangeSet: one entry per (group, prompt) pair, each carrying every
// matching file. Order is deterministic (group order, then prompt order,
// with each entry's own file list sorted) so the watermark index is stable
// across rebuilds that don't change the underlying file set.
func buildSchedule(cfg *config.Config, files []string) []checkItem {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	var schedule []checkItem
	for gi, group := range cfg.Checks {
		if group.IsIgnoreGroup() {
			continue
		}
		var matched []string
		for _, file := range sorted {
			if matchesGroup(group, file) {
				matched = append(matched, file)
			}
		}
		if len(matched) == 0 {
			continue
		}
		for _, prompt := range group.Prompts {
			schedule = append(schedule, checkItem{Files: matched, CheckPrompt: prompt, GroupIndex: gi})
		}
	}
	return schedule
}

func matchesGroup(group config.CheckGroup, path string) bool {
	path = filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range group.Patterns {
		if pattern == "*" {
			return true
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
			name := strings.Trim(pattern, "/")
			for _, seg := range strings.Split(path, "/") {
				if ok, _ := filepath.Match(name, seg); ok {
					return true
				}
			}
		}
	}
	return false
}
