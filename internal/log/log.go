// Package log provides JSON-lines structured logging for nebula.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer

	// Level is the minimum log level (default: LevelWarn)
	Level slog.Level

	// Debug enables debug level logging (overrides Level)
	Debug bool

	// Text switches to the key=value handler instead of JSON.
	Text bool
}

// DefaultConfig returns the default logging configuration.
// CLI invocations stay quiet unless something needs attention.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelWarn,
	}
}

// New creates a new structured logger. The JSON format is:
//
//	{"ts":"2024-01-15T10:30:00Z","level":"WARN","msg":"checkpoint recorded with skipped tests","tests_skipped":3}
//
// Log levels:
//   - debug: statements, pattern matches (NEBULA_DEBUG=1)
//   - info: store opened, version bumps, exports
//   - warn: advisory conditions (skipped tests, FTS5 unavailable)
//   - error: failures surfaced to the caller
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	level := cfg.Level
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}

	if cfg.Text {
		return slog.New(slog.NewTextHandler(output, opts))
	}
	return slog.New(slog.NewJSONHandler(output, opts))
}

// NewFromEnv creates a logger configured from environment variables.
// NEBULA_DEBUG=1 enables debug logging; NEBULA_LOG_LEVEL sets the level.
func NewFromEnv() *slog.Logger {
	cfg := DefaultConfig()
	if v := os.Getenv("NEBULA_LOG_LEVEL"); v != "" {
		if lvl, err := ParseLevel(v); err == nil {
			cfg.Level = lvl
		}
	}
	if os.Getenv("NEBULA_DEBUG") == "1" {
		cfg.Debug = true
	}
	return New(cfg)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts debug|info|warn|error to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// StoreInfo holds information logged when a store is opened.
type StoreInfo struct {
	DatabasePath  string
	SchemaVersion int
	FTS5Available bool
	Project       string
}

// LogStoreOpened logs store startup information.
func LogStoreOpened(logger *slog.Logger, info StoreInfo) {
	logger.Info("memory store opened",
		"database_path", info.DatabasePath,
		"schema_version", info.SchemaVersion,
		"fts5_available", info.FTS5Available,
		"project", info.Project,
	)
}

// LogFTS5Unavailable logs when FTS5 is not available.
func LogFTS5Unavailable(logger *slog.Logger, reason string) {
	logger.Warn("FTS5 not available; similarity search uses substring fallback", "reason", reason)
}

// LogSkippedTests logs the advisory warning for a checkpoint with skipped tests.
func LogSkippedTests(logger *slog.Logger, constellation string, count int, reasons []string) {
	logger.Warn("checkpoint recorded with skipped tests",
		"constellation", constellation,
		"tests_skipped", count,
		"skip_reasons", reasons,
	)
}

// LogPatternMatched logs a recurring error pattern.
func LogPatternMatched(logger *slog.Logger, sig string, occurrences int) {
	logger.Debug("error pattern matched", "signature", sig, "occurrences", occurrences)
}

// LogVersionBumped logs a version transition.
func LogVersionBumped(logger *slog.Logger, component, from, to string) {
	logger.Info("version bumped", "component", component, "from", from, "to", to)
}

// LogSQLiteError logs SQLite errors.
func LogSQLiteError(logger *slog.Logger, operation string, err error) {
	logger.Error("sqlite error", "operation", operation, "error", err)
}
