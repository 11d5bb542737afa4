package lockfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.lock")

	lock, err := TryAcquire(path)
	require.NoError(t, err)
	require.Equal(t, path, lock.Path())

	// Same-process flock on the held path reports busy.
	_, err = TryAcquire(path)
	require.ErrorIs(t, err, ErrLockBusy)

	require.NoError(t, lock.Release())

	again, err := TryAcquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquireTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.lock")

	held, err := TryAcquire(path)
	require.NoError(t, err)
	defer held.Release()

	start := time.Now()
	_, err = Acquire(context.Background(), path, 250*time.Millisecond)
	require.ErrorIs(t, err, ErrLockBusy)
	require.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestAcquireWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.lock")

	held, err := TryAcquire(path)
	require.NoError(t, err)

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = held.Release()
	}()

	lock, err := Acquire(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestReleaseNil(t *testing.T) {
	var lock *Lock
	require.NoError(t, lock.Release())
}
