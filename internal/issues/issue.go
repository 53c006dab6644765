// Package issues implements the in-memory Issue Tracker: the sole owner of
// Issue records, their fuzzy-identity matching, and scoped resolution.
package issues

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status is an Issue's lifecycle state.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Issue is a single reported finding, keyed by file path and normalized
// snippet. Once RESOLVED it is never deleted and its Description/Fix/
// snippet/FirstSeen are frozen — only Line and the "seen this run" bookkeeping
// (owned by the Store, not the Issue itself) may change afterward.
type Issue struct {
	ID           string
	File         string
	Line         int
	Description  string
	SuggestedFix string
	CheckPrompt  string
	FirstSeen    time.Time
	Status       Status
	Snippet      string // normalized code snippet used for identity
}

// RawIssue is what the LLM wire contract (spec.md §6) deserializes into,
// before path validation and normalization.
type RawIssue struct {
	File         string `json:"file"`
	LineNumber   int    `json:"line_number"`
	Description  string `json:"description"`
	SuggestedFix string `json:"suggested_fix"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeSnippet collapses whitespace runs, the normalization spec.md §4.E
// requires before computing fuzzy similarity between snippets.
func NormalizeSnippet(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// newID derives a stable-enough identifier from the normalized identity key
// and a per-file sequence number, so two issues in the same file never
// collide even if their snippets happen to hash the same short prefix.
func newID(file, key string, seq int) string {
	return fmt.Sprintf("%s:%x:%d", file, simpleHash(key), seq)
}

func simpleHash(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
