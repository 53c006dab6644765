package issues

import (
	"sort"
	"sync"
	"time"
)

// DefaultSimilarityThreshold is the default fuzzy-identity threshold from
// spec.md §4.E, configurable per Store.
const DefaultSimilarityThreshold = 0.8

// Store is the sole owner of Issue records for the life of the process. It
// is mutated only by the Scanner goroutine; Snapshot is safe to call
// concurrently (e.g. from the Report Writer) under a brief read lock.
type Store struct {
	mu        sync.RWMutex
	byFile    map[string][]*Issue
	threshold float64
	seq       int
	seenRun   map[*Issue]bool
}

// NewStore creates an empty Store with the default similarity threshold.
func NewStore() *Store {
	return &Store{
		byFile:    make(map[string][]*Issue),
		threshold: DefaultSimilarityThreshold,
		seenRun:   make(map[*Issue]bool),
	}
}

// SetThreshold overrides the fuzzy-identity threshold (spec.md §4.E).
func (s *Store) SetThreshold(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = t
}

// Ingest merges newly produced issues for one CheckRun into the store. Per
// spec.md §4.E: a match updates Line only (description/fix/timestamps are
// frozen); no match appends a new OPEN issue. Matched and new issues are
// marked as seen, and that mark is what the next ResolveScoped call uses to
// decide which issues still reproduce.
func (s *Store) Ingest(raws []RawIssue, checkPrompt string, repoRoot string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, raw := range raws {
		file := sanitizeFilePath(raw.File, repoRoot)
		if file == "" {
			continue // outside-target or empty paths are silently discarded (spec.md §6)
		}
		snippet := NormalizeSnippet(raw.SuggestedFix)
		if snippet == "" {
			snippet = NormalizeSnippet(raw.Description)
		}

		existing := s.findMatch(file, snippet, raw.Description)
		if existing != nil {
			existing.Line = raw.LineNumber
			s.markSeen(existing)
			continue
		}

		s.seq++
		issue := &Issue{
			ID:           newID(file, identityKey(snippet, raw.Description), s.seq),
			File:         file,
			Line:         raw.LineNumber,
			Description:  raw.Description,
			SuggestedFix: raw.SuggestedFix,
			CheckPrompt:  checkPrompt,
			FirstSeen:    now,
			Status:       StatusOpen,
			Snippet:      snippet,
		}
		s.byFile[file] = append(s.byFile[file], issue)
		s.markSeen(issue)
	}
}

func identityKey(snippet, description string) string {
	if snippet != "" {
		return snippet
	}
	return NormalizeSnippet(description)
}

// findMatch implements the identity predicate: same file, fuzzy similarity
// over snippets (or descriptions if snippets are unavailable) at or above
// the threshold, tie-broken by highest similarity then lowest line number.
func (s *Store) findMatch(file, snippet, description string) *Issue {
	var best *Issue
	var bestScore float64 = -1

	for _, issue := range s.byFile[file] {
		if issue.Status != StatusOpen {
			continue
		}
		var score float64
		if snippet != "" && issue.Snippet != "" {
			score = Similarity(snippet, issue.Snippet)
		} else {
			score = Similarity(NormalizeSnippet(description), NormalizeSnippet(issue.Description))
		}
		if score < s.threshold {
			continue
		}
		if score > bestScore || (score == bestScore && best != nil && issue.Line < best.Line) {
			best = issue
			bestScore = score
		}
	}
	return best
}

func (s *Store) markSeen(issue *Issue) {
	s.seenRun[issue] = true
}

// ResolveScoped computes resolution for one completed CheckRun: any OPEN
// issue whose file is in scannedFiles but was not seen during the Ingest
// calls for this run transitions to RESOLVED. Issues in files outside
// scannedFiles are left untouched. "This run" is everything ingested since
// the previous ResolveScoped call, which also clears the seen marks. The
// Scanner calls it once per completed schedule, after every check's batches
// have been ingested, so the union of produced issues is visible atomically.
func (s *Store) ResolveScoped(scannedFiles map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for file := range scannedFiles {
		for _, issue := range s.byFile[file] {
			if issue.Status != StatusOpen {
				continue
			}
			if !s.seenRun[issue] {
				issue.Status = StatusResolved
			}
		}
	}
	s.seenRun = make(map[*Issue]bool)
}

// Snapshot returns a stable, file-grouped, OPEN-before-RESOLVED ordered copy
// of all issues for rendering by the Report Writer.
func (s *Store) Snapshot() []FileIssues {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]string, 0, len(s.byFile))
	for f, issues := range s.byFile {
		if len(issues) > 0 {
			files = append(files, f)
		}
	}
	sort.Strings(files)

	out := make([]FileIssues, 0, len(files))
	for _, f := range files {
		issues := append([]*Issue(nil), s.byFile[f]...)
		sort.SliceStable(issues, func(i, j int) bool {
			if (issues[i].Status == StatusOpen) != (issues[j].Status == StatusOpen) {
				return issues[i].Status == StatusOpen
			}
			return issues[i].FirstSeen.Before(issues[j].FirstSeen)
		})
		copies := make([]Issue, len(issues))
		for i, is := range issues {
			copies[i] = *is
		}
		out = append(out, FileIssues{File: f, Issues: copies})
	}
	return out
}

// FileIssues groups a file's issues for report rendering.
type FileIssues struct {
	File   string
	Issues []Issue
}
