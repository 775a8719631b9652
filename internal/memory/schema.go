package memory

// SchemaVersion is the newest schema this build understands. Opening a
// database with a higher version fails with ErrSchemaVersionTooNew.
const SchemaVersion = 1

// Timestamps are unix milliseconds; list-valued columns hold JSON arrays.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version       INTEGER PRIMARY KEY,
  applied_ts    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS project_info (
  id                     INTEGER PRIMARY KEY CHECK (id = 1),
  name                   TEXT NOT NULL,
  framework              TEXT NOT NULL,
  instance_id            TEXT NOT NULL,
  current_version        TEXT NOT NULL DEFAULT '1.0.0.0',
  version_constellation  INTEGER NOT NULL DEFAULT 1,
  version_star_system    INTEGER NOT NULL DEFAULT 0,
  version_quality_gate   INTEGER NOT NULL DEFAULT 0,
  version_patch          INTEGER NOT NULL DEFAULT 0,
  current_phase          TEXT NOT NULL DEFAULT 'C1',
  current_constellation  TEXT NOT NULL DEFAULT 'Constellation 1',
  current_sub_phase      TEXT NOT NULL DEFAULT '',
  context_summary        TEXT NOT NULL DEFAULT '',
  created_ts             INTEGER NOT NULL,
  updated_ts             INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS errors (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  level          TEXT NOT NULL CHECK (level IN ('ERROR', 'CRITICAL')),
  phase          TEXT NOT NULL DEFAULT '',
  constellation  TEXT NOT NULL DEFAULT '',
  file_path      TEXT,
  line_number    INTEGER,
  error_code     TEXT,
  message        TEXT NOT NULL,
  stack_trace    TEXT,
  attributes     TEXT NOT NULL DEFAULT '{}',
  signature      TEXT NOT NULL,
  resolved       INTEGER NOT NULL DEFAULT 0,
  solution_id    INTEGER,
  created_ts     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS error_patterns (
  id                    INTEGER PRIMARY KEY AUTOINCREMENT,
  signature             TEXT NOT NULL UNIQUE,
  error_type            TEXT NOT NULL,
  common_cause          TEXT NOT NULL DEFAULT '',
  recommended_solution  TEXT,
  occurrences           INTEGER NOT NULL DEFAULT 1,
  success_rate          REAL NOT NULL DEFAULT 0.0,
  first_seen_ts         INTEGER NOT NULL,
  last_seen_ts          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS solutions (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  error_id       INTEGER NOT NULL UNIQUE REFERENCES errors(id),
  description    TEXT NOT NULL,
  code_changes   TEXT,
  applied_by     TEXT NOT NULL CHECK (applied_by IN ('ai', 'human')),
  effectiveness  INTEGER CHECK (effectiveness BETWEEN 1 AND 5),
  notes          TEXT NOT NULL DEFAULT '',
  applied_ts     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  phase          TEXT NOT NULL DEFAULT '',
  constellation  TEXT NOT NULL DEFAULT '',
  category       TEXT NOT NULL,
  question       TEXT NOT NULL,
  chosen         TEXT NOT NULL,
  alternatives   TEXT NOT NULL DEFAULT '[]',
  rationale      TEXT NOT NULL DEFAULT '',
  decided_by     TEXT NOT NULL CHECK (decided_by IN ('ai', 'human')),
  created_ts     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quality_gates (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  phase          TEXT NOT NULL DEFAULT '',
  constellation  TEXT NOT NULL DEFAULT '',
  gate_name      TEXT NOT NULL,
  passed         INTEGER NOT NULL,
  details        TEXT NOT NULL DEFAULT '',
  checked_ts     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS checkpoints (
  id                      INTEGER PRIMARY KEY AUTOINCREMENT,
  constellation           TEXT NOT NULL,
  constellation_index     INTEGER NOT NULL,
  status                  TEXT NOT NULL CHECK (status IN ('passed', 'failed', 'pending', 'skipped')),
  automated_total         INTEGER NOT NULL DEFAULT 0,
  automated_passed        INTEGER NOT NULL DEFAULT 0,
  manual_total            INTEGER NOT NULL DEFAULT 0,
  manual_passed           INTEGER NOT NULL DEFAULT 0,
  tests_skipped           INTEGER NOT NULL DEFAULT 0,
  skip_reasons            TEXT NOT NULL DEFAULT '[]',
  duration_seconds        INTEGER NOT NULL DEFAULT 0,
  performance_acceptable  INTEGER NOT NULL DEFAULT 0,
  docs_updated            INTEGER NOT NULL DEFAULT 0,
  breaking_changes        INTEGER NOT NULL DEFAULT 0,
  breaking_change_notes   TEXT NOT NULL DEFAULT '',
  notes                   TEXT NOT NULL DEFAULT '',
  reviewer                TEXT NOT NULL DEFAULT '',
  reviewer_type           TEXT NOT NULL DEFAULT 'human',
  created_ts              INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS context_snapshots (
  id               INTEGER PRIMARY KEY AUTOINCREMENT,
  phase            TEXT NOT NULL DEFAULT '',
  constellation    TEXT NOT NULL DEFAULT '',
  active_files     TEXT NOT NULL DEFAULT '[]',
  key_decisions    TEXT NOT NULL DEFAULT '[]',
  open_issues      TEXT NOT NULL DEFAULT '[]',
  next_steps       TEXT NOT NULL DEFAULT '',
  session_minutes  INTEGER,
  created_ts       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS version_history (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  version        TEXT NOT NULL,
  phase          TEXT NOT NULL DEFAULT '',
  constellation  TEXT NOT NULL DEFAULT '',
  changelog      TEXT NOT NULL DEFAULT '',
  tag            TEXT NOT NULL DEFAULT '',
  created_ts     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_errors_phase ON errors(phase);
CREATE INDEX IF NOT EXISTS idx_errors_resolved ON errors(resolved);
CREATE INDEX IF NOT EXISTS idx_errors_created ON errors(created_ts);
CREATE INDEX IF NOT EXISTS idx_errors_signature ON errors(signature);
CREATE INDEX IF NOT EXISTS idx_patterns_type ON error_patterns(error_type);
CREATE INDEX IF NOT EXISTS idx_decisions_phase ON decisions(phase);
CREATE INDEX IF NOT EXISTS idx_checkpoints_constellation ON checkpoints(constellation_index);
CREATE INDEX IF NOT EXISTS idx_snapshots_phase_created ON context_snapshots(phase, created_ts);
CREATE INDEX IF NOT EXISTS idx_version_history_created ON version_history(created_ts);
`

// errorsFTSSchema is the optional full-text index over error content. It is
// an external-content table kept in sync by triggers, so it is created
// outside the migration ledger once FTS5 support has been confirmed.
const errorsFTSSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS errors_fts USING fts5(
  message,
  stack_trace,
  content='errors',
  content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS errors_fts_insert AFTER INSERT ON errors BEGIN
  INSERT INTO errors_fts(rowid, message, stack_trace)
  VALUES (new.id, new.message, new.stack_trace);
END;

CREATE TRIGGER IF NOT EXISTS errors_fts_delete AFTER DELETE ON errors BEGIN
  INSERT INTO errors_fts(errors_fts, rowid, message, stack_trace)
  VALUES ('delete', old.id, old.message, old.stack_trace);
END;

CREATE TRIGGER IF NOT EXISTS errors_fts_update AFTER UPDATE OF message, stack_trace ON errors BEGIN
  INSERT INTO errors_fts(errors_fts, rowid, message, stack_trace)
  VALUES ('delete', old.id, old.message, old.stack_trace);
  INSERT INTO errors_fts(rowid, message, stack_trace)
  VALUES (new.id, new.message, new.stack_trace);
END;
`

// AllTables lists every table created by the migrations.
var AllTables = []string{
	"schema_migrations",
	"project_info",
	"errors",
	"error_patterns",
	"solutions",
	"decisions",
	"quality_gates",
	"checkpoints",
	"context_snapshots",
	"version_history",
}

// AllIndexes lists every index created by the migrations.
var AllIndexes = []string{
	"idx_errors_phase",
	"idx_errors_resolved",
	"idx_errors_created",
	"idx_errors_signature",
	"idx_patterns_type",
	"idx_decisions_phase",
	"idx_checkpoints_constellation",
	"idx_snapshots_phase_created",
	"idx_version_history_created",
}
