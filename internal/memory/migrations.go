package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Migration is a single forward-only schema step.
type Migration struct {
	SQL     string
	Version int
}

// Migrations returns all migrations in the order they must be applied.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, SQL: schemaV1},
	}
}

// GetSchemaVersion returns the highest applied migration, or 0 for a fresh file.
func GetSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	exists, err := tableExists(ctx, db, "schema_migrations")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// RunMigrations applies every pending migration, each in its own transaction.
// It refuses to touch a database whose version exceeds SchemaVersion.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	current, err := GetSchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: database version %d, supported version %d",
			ErrSchemaVersionTooNew, current, SchemaVersion)
	}

	for _, m := range Migrations() {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.Version, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Best effort rollback on error

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, applied_ts)
		VALUES (?, ?)
	`, m.Version, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// ValidateSchema checks that all expected tables and indexes exist.
func ValidateSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range AllTables {
		if err := checkObject(ctx, db, "table", table); err != nil {
			return err
		}
	}
	for _, index := range AllIndexes {
		if err := checkObject(ctx, db, "index", index); err != nil {
			return err
		}
	}
	return nil
}

func checkObject(ctx context.Context, db *sql.DB, kind, name string) error {
	var found string
	err := db.QueryRowContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type=? AND name=?
	`, kind, name).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %q does not exist", kind, name)
		}
		return fmt.Errorf("failed to check %s %q: %w", kind, name, err)
	}
	return nil
}
