// Package supervisor owns vigil's process lifecycle: the lock file that
// prevents two instances from watching the same repository, and the
// ordered startup validation sequence (spec.md §4.I), grounded on
// re-cinq-detergent's WritePID/IsProcessAlive runner-lock pattern.
package supervisor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/duskforge/vigil/internal/fileutil"
)

// LockFilename is the PID lock file's name within the repo's .vigil directory.
const LockFilename = "vigil.lock"

// Lock is a PID-file-backed single-instance guard for one repository.
type Lock struct {
	path  string
	owned int32 // atomic: 1 once this process has acquired and not yet released the lock
}

// NewLock returns a Lock for repoDir's .vigil/vigil.lock file.
func NewLock(repoDir string) *Lock {
	return &Lock{path: fileutil.VigilDir(repoDir) + string(os.PathSeparator) + LockFilename}
}

// Acquire takes the lock, reclaiming a stale lock file left by a process
// that is no longer alive. It returns an error if another live process
// currently holds it.
func (l *Lock) Acquire() error {
	if err := fileutil.EnsureDir(dirOf(l.path)); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	if pid := readPID(l.path); pid != 0 && isProcessAlive(pid) {
		return fmt.Errorf("another vigil instance is already running (pid %d)", pid)
	}

	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	atomic.StoreInt32(&l.owned, 1)
	return nil
}

// Release removes the lock file. It is safe to call more than once
// (including from a signal handler racing the normal shutdown path): only
// the first call that observes ownership actually removes the file.
func (l *Lock) Release() {
	if !atomic.CompareAndSwapInt32(&l.owned, 1, 0) {
		return
	}
	os.Remove(l.path)
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, os.PathSeparator)
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// isProcessAlive reports whether pid names a currently running process, by
// sending it the null signal (no actual delivery, just existence/permission
// checking).
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
