package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	nlog "github.com/runger/nebula/internal/log"
)

var (
	// ErrSchemaVersionTooNew is returned when the database was written by a
	// newer build. Running older code against it could corrupt data.
	ErrSchemaVersionTooNew = errors.New("database schema version is newer than supported; upgrade nebula")

	// ErrFTS5Unavailable indicates that the SQLite build lacks FTS5.
	ErrFTS5Unavailable = errors.New("FTS5 not available")

	// ErrStoreClosed is returned when an operation runs after Close.
	ErrStoreClosed = errors.New("memory store is closed")
)

// DefaultBusyTimeout is the SQLite busy_timeout applied when none is set.
const DefaultBusyTimeout = 5 * time.Second

// Options configures Open.
type Options struct {
	Logger *slog.Logger

	// Now overrides the clock used for timestamps (tests).
	Now func() time.Time

	// Path is the database file. Its directory also holds the lock file.
	Path string

	// ProjectName and Framework, when both set, ensure the project row exists.
	ProjectName string
	Framework   string

	LockTimeout time.Duration
	BusyTimeout time.Duration

	// DisableFTS skips the full-text index; search uses substring matching.
	DisableFTS bool

	SkipLock bool

	// Redactor, when set, scrubs secrets from error and solution text
	// before it is stored.
	Redactor Redactor
}

// Redactor rewrites text so it can be stored safely.
type Redactor interface {
	Sanitize(input string) string
}

// Store is a handle on one project's memory database.
type Store struct {
	closeErr error
	db       *sql.DB
	lock     *LockFile
	logger   *slog.Logger
	now      func() time.Time
	redactor Redactor
	search   searcher
	path     string

	ftsAvailable bool
	closeOnce    sync.Once
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (creating if needed) the store at opts.Path, takes the advisory
// lock and applies pending migrations. The caller must call Close.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, invalidf("database path is required")
	}
	dbPath, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = nlog.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	lock, err := acquireOpenLock(dbDir, opts)
	if err != nil {
		return nil, err
	}

	sqlDB, err := openAndInit(ctx, dbPath, opts.BusyTimeout)
	if err != nil {
		releaseLock(lock)
		return nil, err
	}

	s := &Store{
		db:       sqlDB,
		lock:     lock,
		logger:   logger,
		now:      now,
		path:     dbPath,
		redactor: opts.Redactor,
	}

	if err := s.initSearch(ctx, opts.DisableFTS); err != nil {
		s.Close()
		return nil, err
	}

	if opts.ProjectName != "" && opts.Framework != "" {
		if _, err := s.Init(ctx, opts.ProjectName, opts.Framework); err != nil {
			s.Close()
			return nil, err
		}
	}

	nlog.LogStoreOpened(logger, nlog.StoreInfo{
		DatabasePath:  dbPath,
		SchemaVersion: SchemaVersion,
		FTS5Available: s.ftsAvailable,
		Project:       opts.ProjectName,
	})
	return s, nil
}

func acquireOpenLock(dbDir string, opts Options) (*LockFile, error) {
	if opts.SkipLock {
		return nil, nil
	}
	lockOpts := DefaultLockOptions()
	if opts.LockTimeout > 0 {
		lockOpts.Timeout = opts.LockTimeout
	}
	lock, err := AcquireLock(dbDir, lockOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	return lock, nil
}

func releaseLock(lock *LockFile) {
	if lock != nil {
		_ = lock.Release()
	}
}

// openAndInit opens the SQLite database, configures it, pings it, and
// runs migrations.
func openAndInit(ctx context.Context, dbPath string, busyTimeout time.Duration) (*sql.DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}
	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		dbPath, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection for the store's lifetime; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// initSearch decides the search strategy once. FTS5 problems other than a
// missing module are real errors.
func (s *Store) initSearch(ctx context.Context, disabled bool) error {
	if disabled {
		s.search = substringSearcher{}
		return nil
	}
	err := ensureFTS5(ctx, s.db)
	switch {
	case err == nil:
		s.ftsAvailable = true
		s.search = ftsSearcher{}
	case errors.Is(err, ErrFTS5Unavailable):
		nlog.LogFTS5Unavailable(s.logger, err.Error())
		s.search = substringSearcher{}
	default:
		return err
	}
	return nil
}

// ensureFTS5 probes for FTS5 support and creates the errors index. A newly
// created index is rebuilt from the rows already in the errors table.
func ensureFTS5(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS _fts5_probe USING fts5(probe)`); err != nil {
		if isNoSuchModuleError(err) {
			return fmt.Errorf("%w: %v", ErrFTS5Unavailable, err)
		}
		return fmt.Errorf("failed to probe FTS5: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS _fts5_probe`); err != nil {
		return fmt.Errorf("failed to drop FTS5 probe: %w", err)
	}

	exists, err := tableExists(ctx, db, "errors_fts")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Best effort rollback on error

	if _, err := tx.ExecContext(ctx, errorsFTSSchema); err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO errors_fts(errors_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("failed to populate search index: %w", err)
	}
	return tx.Commit()
}

func isNoSuchModuleError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such module")
}

func tableExists(ctx context.Context, q querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?
	`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table %q: %w", name, err)
	}
	return n > 0, nil
}

// Close checkpoints the WAL, closes the database and releases the lock.
// It is safe to call Close multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			// Merge the WAL into the main file so the store is a single file at rest.
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			s.closeErr = s.db.Close()
		}
		if s.lock != nil {
			if err := s.lock.Release(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

// Path returns the absolute database path.
func (s *Store) Path() string {
	return s.path
}

// FTSAvailable reports whether similarity search uses the FTS5 index.
func (s *Store) FTSAvailable() bool {
	return s.ftsAvailable
}

// DB returns the underlying sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SchemaVersion returns the applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return GetSchemaVersion(ctx, s.db)
}

// Validate checks that every expected table and index exists.
func (s *Store) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, s.db)
}

// IntegrityCheck runs SQLite's quick_check and returns the first problem found.
func (s *Store) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// withTx runs fn inside one transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if errors.Is(err, sql.ErrConnDone) {
			return ErrStoreClosed
		}
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Best effort rollback on error

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) redact(text string) string {
	if s.redactor == nil || text == "" {
		return text
	}
	return s.redactor.Sanitize(text)
}

// redactError scrubs the free-text fields of in. The signature is computed
// afterwards, so the same failure with different secrets still groups.
func (s *Store) redactError(in *ErrorInput) {
	if s.redactor == nil {
		return
	}
	in.Message = s.redact(in.Message)
	in.StackTrace = s.redact(in.StackTrace)
	if len(in.Attributes) > 0 {
		attrs := make(Attributes, len(in.Attributes))
		for k, v := range in.Attributes {
			attrs[k] = s.redact(v)
		}
		in.Attributes = attrs
	}
}

func (s *Store) nowMs() int64 {
	return s.now().UnixMilli()
}

func fromMs(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

// Unlimited may be passed as a list limit to return every row.
const Unlimited = -1

func clampLimit(limit, def, maxLimit int) int {
	if limit == Unlimited {
		return limit
	}
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
