package memory

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestOpen_CreatesDatabaseAndDirectory(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", ".nebula", "memory.db")
	s, err := Open(context.Background(), Options{Path: dbPath, SkipLock: true})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(s.Path()))
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Options{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestOpen_RunsMigrations(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Validate(ctx))
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestOpen_ReopenIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "memory.db")

	s, err := Open(ctx, Options{Path: dbPath, SkipLock: true, ProjectName: "demo", Framework: "go"})
	require.NoError(t, err)
	logTestError(t, s, "E1", "boom")
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Path: dbPath, SkipLock: true, ProjectName: "other", Framework: "rust"})
	require.NoError(t, err)
	defer s.Close()

	var migrations int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&migrations))
	assert.Equal(t, len(Migrations()), migrations)

	// Duplicate init is ignored; the original project survives.
	p, err := s.Project(ctx)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Name)
	assert.Equal(t, "go", p.Framework)

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalErrors)
}

func TestOpen_RefusesNewerSchema(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "memory.db")

	s, err := Open(ctx, Options{Path: dbPath, SkipLock: true})
	require.NoError(t, err)
	_, err = s.DB().ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_ts) VALUES (?, 0)`, SchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Path: dbPath, SkipLock: true})
	require.ErrorIs(t, err, ErrSchemaVersionTooNew)
}

func TestOpen_FTSCapabilityFlag(t *testing.T) {
	t.Parallel()

	withFTS := newTestStore(t)
	assert.True(t, withFTS.FTSAvailable())

	without := newTestStore(t, withoutFTS())
	assert.False(t, without.FTSAvailable())
	require.ErrorIs(t, without.RebuildSearchIndex(context.Background()), ErrFTS5Unavailable)

	exists, err := tableExists(context.Background(), without.DB(), "errors_fts")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpen_IndexBuiltFromExistingRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "memory.db")

	s, err := Open(ctx, Options{Path: dbPath, SkipLock: true, DisableFTS: true, ProjectName: "demo", Framework: "go"})
	require.NoError(t, err)
	logTestError(t, s, "", "segmentation fault in parser")
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Path: dbPath, SkipLock: true})
	require.NoError(t, err)
	defer s.Close()
	require.True(t, s.FTSAvailable())

	hits, err := s.FindSimilarErrors(ctx, SimilarQuery{Text: "segmentation fault"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), Options{Path: filepath.Join(t.TempDir(), "memory.db"), SkipLock: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestClose_ReleasesLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "memory.db")

	s, err := Open(ctx, Options{Path: dbPath, LockTimeout: 1})
	require.NoError(t, err)
	assert.True(t, IsLocked(dir))

	_, err = Open(ctx, Options{Path: dbPath, LockTimeout: 1})
	require.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, s.Close())
	assert.False(t, IsLocked(dir))

	s, err = Open(ctx, Options{Path: dbPath, LockTimeout: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestIntegrityCheck(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.IntegrityCheck(context.Background()))
}

func TestInit_CreatesProject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, uninitialized())

	_, err := s.Project(ctx)
	require.ErrorIs(t, err, ErrNotInitialized)

	p, err := s.Init(ctx, "nebula", "go")
	require.NoError(t, err)
	assert.Equal(t, "nebula", p.Name)
	assert.Equal(t, "go", p.Framework)
	assert.Equal(t, "1.0.0.0", p.CurrentVersion)
	assert.Equal(t, 1, p.Version.Constellation)
	assert.Equal(t, "C1", p.Phase)
	assert.Equal(t, "Constellation 1", p.Constellation)
	assert.Len(t, p.InstanceID, 36)

	again, err := s.Init(ctx, "renamed", "rust")
	require.NoError(t, err)
	assert.Equal(t, p.InstanceID, again.InstanceID)
	assert.Equal(t, "nebula", again.Name)
}

func TestInit_Validation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, uninitialized())
	_, err := s.Init(context.Background(), " ", "go")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Init(context.Background(), "demo", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestProjectSingleton(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.DB().ExecContext(context.Background(), `
		INSERT INTO project_info (id, name, framework, instance_id, created_ts, updated_ts)
		VALUES (2, 'x', 'y', 'z', 0, 0)
	`)
	require.Error(t, err)
}

func TestSetPhase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SetPhase(ctx, PhasePointer{Phase: "C2", Constellation: "Constellation 2", SubPhase: "testing"}))
	p, err := s.Project(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C2", p.Phase)
	assert.Equal(t, "Constellation 2", p.Constellation)
	assert.Equal(t, "testing", p.SubPhase)

	// Empty fields keep their value.
	require.NoError(t, s.SetPhase(ctx, PhasePointer{SubPhase: "review"}))
	p, err = s.Project(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C2", p.Phase)
	assert.Equal(t, "review", p.SubPhase)

	require.ErrorIs(t, s.SetPhase(ctx, PhasePointer{}), ErrInvalidInput)

	bare := newTestStore(t, uninitialized())
	require.ErrorIs(t, bare.SetPhase(ctx, PhasePointer{Phase: "C1"}), ErrNotInitialized)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO decisions (category, question, chosen, decided_by, created_ts)
			VALUES ('c', 'q', 'a', 'ai', 0)
		`)
		require.NoError(t, err)
		return ErrInvalidInput
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Decisions)
}
