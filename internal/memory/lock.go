package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LockFileName is the advisory lock file created next to the database.
const LockFileName = ".memory.lock"

var (
	// ErrLockAcquireFailed is returned when the lock file cannot be created or locked.
	ErrLockAcquireFailed = errors.New("failed to acquire store lock")

	// ErrLockHeld is returned when another process owns the store and the
	// lock timeout elapsed.
	ErrLockHeld = errors.New("store is locked by another process")
)

// LockFile is an advisory lock guarding one project store.
type LockFile struct {
	file *os.File
	path string
}

// LockOptions configures lock acquisition.
type LockOptions struct {
	// Timeout is how long to keep retrying. Zero means try once.
	Timeout time.Duration

	// RetryInterval is the delay between attempts.
	RetryInterval time.Duration
}

// DefaultLockOptions returns the default lock options.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Timeout:       5 * time.Second,
		RetryInterval: 100 * time.Millisecond,
	}
}

// LockPath returns the lock file path for a database directory.
func LockPath(dir string) string {
	return filepath.Join(dir, LockFileName)
}

// AcquireLock takes the advisory lock in dir, retrying until opts.Timeout.
// The holder's PID is written into the file for diagnostics.
func AcquireLock(dir string, opts LockOptions) (*LockFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %v", ErrLockAcquireFailed, err)
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultLockOptions().RetryInterval
	}

	path := LockPath(dir)
	deadline := time.Now().Add(opts.Timeout)
	for {
		f, err := tryLock(path)
		if err == nil {
			if err := writePID(f); err != nil {
				_ = unlock(f, path)
				_ = f.Close()
				return nil, fmt.Errorf("%w: write pid: %v", ErrLockAcquireFailed, err)
			}
			return &LockFile{file: f, path: path}, nil
		}
		if !isLockContention(err) {
			return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
		}
		if !time.Now().Before(deadline) {
			if pid := GetLockHolderPID(dir); pid > 0 {
				return nil, fmt.Errorf("%w (pid %d)", ErrLockHeld, pid)
			}
			return nil, ErrLockHeld
		}
		time.Sleep(opts.RetryInterval)
	}
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return err
	}
	return f.Sync()
}

// Release drops the lock. It is safe to call more than once.
func (l *LockFile) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unlock(l.file, l.path)
	closeErr := l.file.Close()
	l.file = nil
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	if unlockErr != nil {
		return fmt.Errorf("failed to release lock: %w", unlockErr)
	}
	return closeErr
}

// Path returns the lock file path.
func (l *LockFile) Path() string {
	return l.path
}

// GetLockHolderPID returns the PID recorded in the lock file, or 0.
func GetLockHolderPID(dir string) int {
	data, err := os.ReadFile(LockPath(dir))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
