// Package lockfile serializes write access to a workspace across processes
// using advisory file locks.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockBusy indicates the lock is held by another process.
var ErrLockBusy = errors.New("workspace lock already held by another process")

// DefaultRetryInterval is how often Acquire re-checks a contended lock.
const DefaultRetryInterval = 100 * time.Millisecond

// Lock is a held advisory lock on a workspace lock file.
type Lock struct {
	fl *flock.Flock
}

// TryAcquire attempts to take the exclusive lock without waiting.
// Returns ErrLockBusy if another process holds it.
func TryAcquire(path string) (*Lock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLockBusy
	}
	return &Lock{fl: fl}, nil
}

// Acquire takes the exclusive lock, retrying until the context is done.
// A zero timeout means wait indefinitely (bounded only by ctx).
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, DefaultRetryInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLockBusy
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock. Safe to call on an already-released lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
