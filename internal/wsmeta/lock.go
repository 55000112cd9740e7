package wsmeta

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// lockFileName is the advisory lock file inside DirName.
const lockFileName = "lock"

// Lock is a process-wide advisory lock over a workspace, held for the
// duration of a single command invocation. An exclusive lock excludes every
// other holder; shared locks never block each other but are excluded by an
// exclusive one. The workspace-writing commands take the exclusive lock;
// no command takes the shared lock, so read-only commands run unlocked.
type Lock struct {
	fl     *flock.Flock
	Holder string
}

// lockPath returns the path to the lock file inside a workspace root.
func lockPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, DirName, lockFileName)
}

// AcquireExclusive blocks until an exclusive lock on workspaceRoot is
// obtained or ctx is done. Used by the clone, update, checkout and tag
// commands.
func AcquireExclusive(ctx context.Context, workspaceRoot string) (*Lock, error) {
	return acquire(ctx, workspaceRoot, true)
}

// AcquireShared blocks until a shared (read) lock on workspaceRoot is
// obtained or ctx is done. No command calls it; read-only commands such as
// status and info take no lock.
func AcquireShared(ctx context.Context, workspaceRoot string) (*Lock, error) {
	return acquire(ctx, workspaceRoot, false)
}

func acquire(ctx context.Context, workspaceRoot string, exclusive bool) (*Lock, error) {
	dir := filepath.Join(workspaceRoot, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	path := lockPath(workspaceRoot)
	fl := flock.New(path)

	holder := uuid.New().String()
	lockFn := fl.TryLockContext
	if !exclusive {
		lockFn = fl.TryRLockContext
	}
	locked, err := lockFn(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: timed out waiting for workspace lock", path)
	}
	if exclusive {
		if err := os.WriteFile(path, []byte(holder+"\n"), 0o644); err != nil {
			_ = fl.Unlock()
			return nil, fmt.Errorf("record lock holder: %w", err)
		}
	}
	return &Lock{fl: fl, Holder: holder}, nil
}

// Release unlocks the workspace lock. Safe to call once; callers typically
// defer it immediately after a successful Acquire*.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
