package gitwatch

import "testing"

func TestChangedNilPrevReturnsAll(t *testing.T) {
	cs := &ChangeSet{Files: map[string]string{"a.go": "h1", "b.go": "h2"}}
	changed := cs.Changed(nil)
	if len(changed) != 2 {
		t.Fatalf("expected 2 changed paths, got %d", len(changed))
	}
}

func TestChangedDetectsModifiedAndNew(t *testing.T) {
	prev := &ChangeSet{Files: map[string]string{"a.go": "h1", "b.go": "h2"}}
	cur := &ChangeSet{Files: map[string]string{"a.go": "h1-modified", "b.go": "h2", "c.go": "h3"}}

	changed := cur.Changed(prev)
	if len(changed) != 2 {
		t.Fatalf("expected 2 changed paths, got %d: %+v", len(changed), changed)
	}
	if !changed["a.go"] || !changed["c.go"] {
		t.Errorf("expected a.go (modified) and c.go (new) to be changed, got %+v", changed)
	}
	if changed["b.go"] {
		t.Errorf("b.go is unchanged and should not appear")
	}
}
