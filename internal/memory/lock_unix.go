//go:build !windows

package memory

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func tryLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func isLockContention(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}

// unlock leaves the file in place; removing it would let a waiter lock a
// stale inode while a newcomer creates a fresh one.
func unlock(f *os.File, _ string) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// IsLocked reports whether another process holds the lock in dir.
func IsLocked(dir string) bool {
	f, err := os.OpenFile(LockPath(dir), os.O_RDWR, 0o600)
	if err != nil {
		return false
	}
	defer f.Close()
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return isLockContention(err)
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false
}
