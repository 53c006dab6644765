package supervisor

import (
	"os"
	"testing"
)

func TestLockAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	l := NewLock(dir)

	if err := l.Acquire(); err != nil {
		t.Fatalf("expected first acquire to succeed: %s", err)
	}
	l.Release()

	if err := l.Acquire(); err != nil {
		t.Fatalf("expected re-acquire after release to succeed: %s", err)
	}
	l.Release()
}

func TestLockReleaseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l := NewLock(dir)
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	l.Release()
	l.Release() // must not panic or double-remove
}

func TestLockReclaimsStaleLockFile(t *testing.T) {
	dir := t.TempDir()
	l := NewLock(dir)
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}

	// Simulate a second Supervisor instance reclaiming after this one's
	// process died without releasing (owned flag unset, file left behind):
	// a fresh Lock for the same directory should still be able to acquire
	// because the PID it finds is this live test process... so instead
	// verify the inverse: a lock file naming a PID that cannot exist
	// (999999999, above any real pid_max) is treated as reclaimable.
	if err := os.WriteFile(l.path, []byte("999999999\n"), 0644); err != nil {
		t.Fatal(err)
	}
	l2 := NewLock(dir)
	if err := l2.Acquire(); err != nil {
		t.Fatalf("expected lock naming a dead/impossible PID to be reclaimed: %s", err)
	}
	l2.Release()
}
