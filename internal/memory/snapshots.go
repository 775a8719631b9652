package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const snapshotColumns = `
	id, phase, constellation, active_files, key_decisions, open_issues,
	next_steps, session_minutes, created_ts`

// SaveContextSnapshot records the current working context.
func (s *Store) SaveContextSnapshot(ctx context.Context, in SnapshotInput) (int64, error) {
	if in.SessionMinutes < 0 {
		return 0, invalidf("session minutes must be >= 0 (got %d)", in.SessionMinutes)
	}
	files, err := encodeList(in.ActiveFiles)
	if err != nil {
		return 0, err
	}
	decisions, err := encodeList(in.KeyDecisions)
	if err != nil {
		return 0, err
	}
	issues, err := encodeList(in.OpenIssues)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO context_snapshots (
			phase, constellation, active_files, key_decisions, open_issues,
			next_steps, session_minutes, created_ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Phase, in.Constellation, files, decisions, issues,
		in.NextSteps, nullInt(in.SessionMinutes), s.nowMs())
	if err != nil {
		return 0, fmt.Errorf("failed to insert context snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}
	return id, nil
}

// LatestContextSnapshot returns the most recent snapshot, restricted to phase
// when it is non-empty. It returns ErrNoSnapshot when nothing matches.
func (s *Store) LatestContextSnapshot(ctx context.Context, phase string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM context_snapshots
		WHERE ? = '' OR phase = ?
		ORDER BY created_ts DESC, id DESC
		LIMIT 1
	`, phase, phase)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load context snapshot: %w", err)
	}
	return snap, nil
}

// ListContextSnapshots returns the most recent snapshots, newest first.
func (s *Store) ListContextSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM context_snapshots
		ORDER BY created_ts DESC, id DESC
		LIMIT ?
	`, clampLimit(limit, DefaultListLimit, 1000))
	if err != nil {
		return nil, fmt.Errorf("failed to list context snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan context snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		snap                     Snapshot
		files, decisions, issues string
		minutes                  sql.NullInt64
		createdTs                int64
	)
	err := row.Scan(&snap.ID, &snap.Phase, &snap.Constellation, &files, &decisions, &issues,
		&snap.NextSteps, &minutes, &createdTs)
	if err != nil {
		return nil, err
	}
	if snap.ActiveFiles, err = decodeList(files); err != nil {
		return nil, err
	}
	if snap.KeyDecisions, err = decodeList(decisions); err != nil {
		return nil, err
	}
	if snap.OpenIssues, err = decodeList(issues); err != nil {
		return nil, err
	}
	snap.SessionMinutes = int(minutes.Int64)
	snap.CreatedAt = fromMs(createdTs)
	return &snap, nil
}
