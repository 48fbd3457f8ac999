package cron

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the workspace root by the running bot.
const LockFileName = ".wavbot.lock"

// ErrRootLocked is returned when another process already owns the workspace root
var ErrRootLocked = errors.New("another wavbot instance is using this workspace root")

// RootLock guarantees a single process sweeps and writes a workspace root.
type RootLock struct {
	lock *flock.Flock
}

// AcquireRootLock takes the workspace root's lock without blocking.
func AcquireRootLock(root string) (*RootLock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	lock := flock.New(filepath.Join(root, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrRootLocked
	}
	return &RootLock{lock: lock}, nil
}

// Path returns the lock file path
func (l *RootLock) Path() string {
	return l.lock.Path()
}

// Release unlocks the workspace root
func (l *RootLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
