package gitwatch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/duskforge/vigil/internal/fileutil"
)

// DefaultPollInterval is the fixed polling cadence from spec.md §4.B.
const DefaultPollInterval = 30 * time.Second

// Run polls w on interval, publishing every ChangeSet (including a zero-diff
// one) to cell, until ctx is cancelled. An fsnotify watch on repoDir nudges
// an earlier poll when the filesystem is quiet between ticks; it never
// replaces the ChangeSet computation itself, only its timing, per
// spec.md §4.B.2 — a raw fsnotify event carries no hash or filter
// information, so every nudge still goes through the same Poll call as a
// scheduled tick.
func Run(ctx context.Context, w *Watcher, cell *Cell, repoDir string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	nudge := make(chan struct{}, 1)
	stopWatch := startFSNotifyNudge(repoDir, nudge)
	if stopWatch != nil {
		defer stopWatch()
	}

	poll := func() {
		cs, err := w.Poll()
		if err != nil {
			fileutil.LogError("gitwatch: poll failed: %s", err)
			return
		}
		cell.Publish(cs)
	}

	poll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		case <-nudge:
			if debounce == nil {
				t := time.NewTimer(500 * time.Millisecond)
				debounce = t.C
			}
		case <-debounce:
			debounce = nil
			poll()
			ticker.Reset(interval)
		}
	}
}

// startFSNotifyNudge watches repoDir itself, not its subdirectories (the
// poll covers nested paths), and sends on nudge for every event fsnotify
// reports there, whatever its operation. It returns a stop
// function, or nil if the watch could not be established — the poll-based
// cadence still functions without it, just with up to interval latency.
func startFSNotifyNudge(repoDir string, nudge chan<- struct{}) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fileutil.LogWarn("gitwatch: fsnotify unavailable, falling back to poll-only cadence: %s", err)
		return nil
	}

	if err := watcher.Add(repoDir); err != nil {
		fileutil.LogWarn("gitwatch: fsnotify watch failed for %s: %s", repoDir, err)
		watcher.Close()
		return nil
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				select {
				case nudge <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}
}
