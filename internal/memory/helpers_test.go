package memory

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	nlog "github.com/runger/nebula/internal/log"
)

// testClock is a settable clock; each read returns the current value.
type testClock struct {
	now time.Time
	mu  sync.Mutex
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeOption func(*Options)

func withoutFTS() storeOption {
	return func(o *Options) { o.DisableFTS = true }
}

func withClock(c *testClock) storeOption {
	return func(o *Options) { o.Now = c.Now }
}

func withLogBuffer(buf *bytes.Buffer) storeOption {
	return func(o *Options) {
		o.Logger = nlog.New(&nlog.Config{Output: buf, Debug: true})
	}
}

func withRedactor(r Redactor) storeOption {
	return func(o *Options) { o.Redactor = r }
}

func uninitialized() storeOption {
	return func(o *Options) {
		o.ProjectName = ""
		o.Framework = ""
	}
}

// newTestStore opens an initialized store in a temp directory.
func newTestStore(t *testing.T, opts ...storeOption) *Store {
	t.Helper()

	o := Options{
		Path:        filepath.Join(t.TempDir(), ".nebula", "memory.db"),
		SkipLock:    true, // Skip lock for parallel tests
		ProjectName: "demo",
		Framework:   "nextjs",
	}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := Open(context.Background(), o)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func logTestError(t *testing.T, s *Store, code, message string) *LogResult {
	t.Helper()
	res, err := s.LogError(context.Background(), ErrorInput{
		Level:         LevelError,
		Phase:         "C1",
		Constellation: "Constellation 1",
		Code:          code,
		Message:       message,
	})
	require.NoError(t, err)
	return res
}
