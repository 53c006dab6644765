package issues

import (
	"testing"
	"time"
)

func TestIngestNewIssueThenMatch(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Ingest([]RawIssue{
		{File: "src/main.cpp", LineNumber: 10, Description: "heap alloc", SuggestedFix: "QApplication app(argc, argv);"},
	}, "check heap", "", now)

	snap := s.Snapshot()
	if len(snap) != 1 || len(snap[0].Issues) != 1 {
		t.Fatalf("expected 1 file with 1 issue, got %+v", snap)
	}
	if snap[0].Issues[0].Status != StatusOpen {
		t.Errorf("expected OPEN, got %s", snap[0].Issues[0].Status)
	}

	// Re-ingest a near-identical issue on a different line: should match,
	// not duplicate, and only the line number should move.
	s.Ingest([]RawIssue{
		{File: "src/main.cpp", LineNumber: 12, Description: "heap alloc", SuggestedFix: "QApplication app(argc, argv);"},
	}, "check heap", "", now)

	snap = s.Snapshot()
	if len(snap[0].Issues) != 1 {
		t.Fatalf("expected the second ingest to match, not duplicate; got %d issues", len(snap[0].Issues))
	}
	if snap[0].Issues[0].Line != 12 {
		t.Errorf("Line = %d, want 12", snap[0].Issues[0].Line)
	}
}

func TestResolveScopedOnlyAffectsScannedFiles(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Ingest([]RawIssue{
		{File: "a.go", LineNumber: 1, Description: "issue a", SuggestedFix: "fix a"},
		{File: "b.go", LineNumber: 2, Description: "issue b", SuggestedFix: "fix b"},
	}, "check1", "", now)
	s.ResolveScoped(map[string]bool{"a.go": true, "b.go": true}) // end of the first run

	// Next run scans only a.go, and a.go no longer reproduces the issue.
	s.Ingest(nil, "check1", "", now)
	s.ResolveScoped(map[string]bool{"a.go": true})

	snap := s.Snapshot()
	var aStatus, bStatus Status
	for _, fi := range snap {
		for _, is := range fi.Issues {
			if fi.File == "a.go" {
				aStatus = is.Status
			}
			if fi.File == "b.go" {
				bStatus = is.Status
			}
		}
	}
	if aStatus != StatusResolved {
		t.Errorf("a.go issue should be RESOLVED (scanned, not reproduced), got %s", aStatus)
	}
	if bStatus != StatusOpen {
		t.Errorf("b.go issue should remain OPEN (not scanned this run), got %s", bStatus)
	}
}

func TestResolvedNeverReopens(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Ingest([]RawIssue{{File: "a.go", LineNumber: 1, Description: "d", SuggestedFix: "f"}}, "c", "", now)
	s.ResolveScoped(map[string]bool{"a.go": true}) // end of the first run
	s.Ingest(nil, "c", "", now)
	s.ResolveScoped(map[string]bool{"a.go": true})

	// A later run scans a.go again, with no matching new issue ingested —
	// the resolved issue must stay resolved, never "reopen".
	s.ResolveScoped(map[string]bool{"a.go": true})

	snap := s.Snapshot()
	if snap[0].Issues[0].Status != StatusResolved {
		t.Errorf("expected RESOLVED to be terminal, got %s", snap[0].Issues[0].Status)
	}
}

func TestIngestDiscardsPathEscapeAndEmpty(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Ingest([]RawIssue{
		{File: "", LineNumber: 1, Description: "x", SuggestedFix: "y"},
		{File: "../../etc/passwd", LineNumber: 1, Description: "x", SuggestedFix: "y"},
	}, "c", "/repo", now)

	snap := s.Snapshot()
	if len(snap) != 0 {
		t.Fatalf("expected no issues ingested, got %+v", snap)
	}
}

func TestSimilarityIdenticalIsOne(t *testing.T) {
	if got := Similarity("abc", "abc"); got != 1 {
		t.Errorf("Similarity(abc,abc) = %v, want 1", got)
	}
}

func TestSimilarityNearMiss(t *testing.T) {
	got := Similarity("QApplication* app = new QApplication(argc, argv);", "QApplication *app = new QApplication(argc,argv);")
	if got < 0.8 {
		t.Errorf("Similarity = %v, want >= 0.8 for a near-identical snippet", got)
	}
}
