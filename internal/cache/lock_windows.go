//go:build windows

package cache

import (
	"os"

	"golang.org/x/sys/windows"
)

// tryLock on Windows always takes an exclusive lock, even when a shared
// lock was requested: Windows mandatory locking makes shared read locks
// unreliable across processes here, so spec §4.2 calls for degrading to
// exclusive rather than risking a torn read.
func tryLock(f *os.File, mode lockMode) (bool, error) {
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol,
	)
	if err == nil {
		return true, nil
	}
	if err == windows.ERROR_LOCK_VIOLATION {
		return false, nil
	}
	return false, err
}

func unlockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}
