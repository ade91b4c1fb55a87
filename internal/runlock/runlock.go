// Package runlock enforces single-instance execution so concurrent cron
// firings or manual runs cannot interleave export, state, and cache writes.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld means another shelfsync process owns the lock.
var ErrHeld = errors.New("another sync is already running")

// Lock is a file-based mutual exclusion handle.
type Lock struct {
	path string
	lock *flock.Flock
}

// New creates a lock rooted in dir. The lock is not acquired until Acquire.
func New(dir string) *Lock {
	path := filepath.Join(dir, "shelfsync.lock")
	return &Lock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. It fails with ErrHeld when
// another process already holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock file %s)", ErrHeld, l.path)
	}
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
