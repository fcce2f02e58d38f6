//go:build !windows

package cache

import (
	"os"

	"golang.org/x/sys/unix"
)

// tryLock attempts a non-blocking advisory lock via flock(2). Shared locks
// allow concurrent readers; exclusive locks are required for any mutation.
func tryLock(f *os.File, mode lockMode) (bool, error) {
	op := unix.LOCK_EX
	if mode == lockShared {
		op = unix.LOCK_SH
	}

	err := unix.Flock(int(f.Fd()), op|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if err == unix.EWOULDBLOCK {
		return false, nil
	}
	return false, err
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
