package cache

import (
	"fmt"
	"os"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
)

// lockMode selects advisory-lock strength.
type lockMode int

const (
	lockShared lockMode = iota
	lockExclusive
)

// fileLock guards a cache entry's sidecar lock file with an OS advisory
// lock, polling at a fixed interval up to a timeout (spec §4.2).
type fileLock struct {
	path string
	file *os.File
}

const lockPollInterval = 50 * time.Millisecond

// acquireLock opens (creating if necessary) the lock file at path and
// blocks, polling, until the requested mode is granted or timeout elapses.
func acquireLock(path string, mode lockMode, timeout time.Duration) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := tryLock(f, mode)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		if ok {
			return &fileLock{path: path, file: f}, nil
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("%w: %s after %s", domain.ErrLockTimeout, path, timeout)
		}
		time.Sleep(lockPollInterval)
	}
}

// release unlocks and closes the lock file. Failure to remove the sidecar
// file afterward is not an error (spec §4.2): it is best-effort cleanup.
func (l *fileLock) release() {
	_ = unlockFile(l.file)
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
