package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/runger/nebula/internal/config"
	nlog "github.com/runger/nebula/internal/log"
	"github.com/runger/nebula/internal/memory"
	"github.com/runger/nebula/internal/sanitize"
)

// env is the resolved project context of one CLI invocation.
type env struct {
	paths  *config.Paths
	cfg    *config.Config
	logger *slog.Logger

	logFile io.Closer
}

// loadEnv resolves the project root and loads its configuration.
func loadEnv() (*env, error) {
	paths := config.DefaultPaths()
	if projectDir != "" {
		abs, err := filepath.Abs(projectDir)
		if err != nil {
			return nil, fmt.Errorf("invalid project directory: %w", err)
		}
		paths = config.NewPaths(abs)
	}

	cfg, err := config.LoadFromFile(paths.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	e := &env{paths: paths, cfg: cfg}
	if err := e.initLogger(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *env) initLogger() error {
	lvl, err := nlog.ParseLevel(e.cfg.Log.Level)
	if err != nil {
		return err
	}
	if debugOutput {
		lvl = slog.LevelDebug
	}
	// stderr gets warnings and above unless debugging; a log file gets the
	// configured level.
	logCfg := &nlog.Config{Output: os.Stderr, Level: max(lvl, slog.LevelWarn), Text: e.cfg.Log.Format == "text"}
	if lvl == slog.LevelDebug {
		logCfg.Level = lvl
	}

	if e.cfg.Log.File != "" {
		path := e.cfg.Log.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.paths.Root, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logCfg.Output = f
		logCfg.Level = lvl
		e.logFile = f
	}

	e.logger = nlog.New(logCfg)
	return nil
}

func (e *env) close() {
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

// projectName returns the configured name or the root directory name.
func (e *env) projectName() string {
	if e.cfg.Project.Name != "" {
		return e.cfg.Project.Name
	}
	return filepath.Base(e.paths.Root)
}

func (e *env) storeOptions() memory.Options {
	opts := memory.Options{
		Logger:      e.logger,
		Path:        e.paths.ResolveDatabase(e.cfg),
		LockTimeout: time.Duration(e.cfg.Storage.LockTimeoutMs) * time.Millisecond,
		BusyTimeout: time.Duration(e.cfg.Storage.BusyTimeoutMs) * time.Millisecond,
		DisableFTS:  !e.cfg.Storage.FTSEnabled,
	}
	if e.cfg.Privacy.RedactSecrets {
		opts.Redactor = sanitize.New()
	}
	return opts
}

var errNoMemory = errors.New("no project memory found; run 'nebula init' first")

// openStore opens the existing project memory. Only init creates one.
func (e *env) openStore(ctx context.Context) (*memory.Store, error) {
	opts := e.storeOptions()
	if _, err := os.Stat(opts.Path); errors.Is(err, os.ErrNotExist) {
		return nil, errNoMemory
	}
	return memory.Open(ctx, opts)
}

// withStore loads the environment, opens the store, runs fn and closes
// everything again.
func withStore(ctx context.Context, fn func(e *env, s *memory.Store) error) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.openStore(ctx)
	if err != nil {
		return err
	}

	runErr := fn(e, s)
	if err := s.Close(); err != nil && runErr == nil {
		return fmt.Errorf("failed to close memory: %w", err)
	}
	return runErr
}

// pointers fills empty phase and constellation values from the project row.
func pointers(ctx context.Context, s *memory.Store, phase, constellation string) (string, string, error) {
	if phase != "" && constellation != "" {
		return phase, constellation, nil
	}
	info, err := s.Project(ctx)
	if err != nil {
		return "", "", err
	}
	if phase == "" {
		phase = info.Phase
	}
	if constellation == "" {
		constellation = info.Constellation
	}
	return phase, constellation, nil
}
