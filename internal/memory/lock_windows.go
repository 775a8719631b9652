//go:build windows

package memory

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// Windows has no flock; exclusive creation of the lock file is the lock,
// and a file left behind by a dead process is cleared.
func tryLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	if pid := GetLockHolderPID(filepath.Dir(path)); pid > 0 && processExists(pid) {
		return nil, err
	}
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
}

func isLockContention(err error) bool {
	return errors.Is(err, os.ErrExist)
}

func unlock(f *os.File, path string) error {
	// Close before remove; Windows refuses to delete open files.
	_ = f.Close()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IsLocked reports whether a live process holds the lock in dir.
func IsLocked(dir string) bool {
	if _, err := os.Stat(LockPath(dir)); err != nil {
		return false
	}
	pid := GetLockHolderPID(dir)
	return pid > 0 && processExists(pid)
}

const stillActive = 259

func processExists(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}
