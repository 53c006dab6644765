// Package gitwatch implements the Git Watcher goroutine: it polls the
// working tree on a fixed cadence, computes a ChangeSet, and publishes it
// to the Scanner Engine through a single-slot latest-wins Cell (spec.md
// §2.B, §5).
package gitwatch

import "sync"

// Cell is a single-slot, mutex-protected mailbox. Unlike a channel queue,
// a newer ChangeSet always overwrites an unconsumed older one: the Scanner
// only ever cares about the most recent state of the tree, never a backlog
// of intermediate states.
type Cell struct {
	mu      sync.Mutex
	set     *ChangeSet
	pending bool
}

// NewCell returns an empty Cell.
func NewCell() *Cell {
	return &Cell{}
}

// Publish stores cs, overwriting whatever was previously unconsumed.
func (c *Cell) Publish(cs *ChangeSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = cs
	c.pending = true
}

// TryTake returns the latest published ChangeSet and clears the slot, or
// reports ok=false if nothing new has been published since the last take.
func (c *Cell) TryTake() (cs *ChangeSet, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return nil, false
	}
	c.pending = false
	return c.set, true
}

// Peek returns the most recently published ChangeSet without consuming it,
// or nil if nothing has ever been published. Unlike TryTake, it does not
// affect the pending flag: the watermark pass loop uses it to compare
// against a baseline mid-pass without stealing the wakeup a later TryTake
// needs to see.
func (c *Cell) Peek() *ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set
}

// Sync clears the pending flag if cs is still the latest published
// ChangeSet. Called once a pass-restart loop has fully incorporated cs (via
// Peek) into its results, so the next TryTake doesn't trigger a pointless
// full re-run over data already accounted for. If a newer ChangeSet arrived
// while the loop was working, pending is left set so the caller's next
// TryTake picks it up.
func (c *Cell) Sync(cs *ChangeSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set == cs {
		c.pending = false
	}
}
