package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/runger/nebula/internal/version"
)

const projectColumns = `
	name, framework, instance_id, current_version,
	version_constellation, version_star_system, version_quality_gate, version_patch,
	current_phase, current_constellation, current_sub_phase, context_summary,
	created_ts, updated_ts`

// Init creates the project row if it does not exist yet and returns the
// current row. Re-initializing keeps the existing name and version.
func (s *Store) Init(ctx context.Context, name, framework string) (*ProjectInfo, error) {
	name = strings.TrimSpace(name)
	framework = strings.TrimSpace(framework)
	if name == "" {
		return nil, invalidf("project name is required")
	}
	if framework == "" {
		return nil, invalidf("framework is required")
	}

	now := s.nowMs()
	v := version.Initial
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO project_info (
			id, name, framework, instance_id, current_version,
			version_constellation, version_star_system, version_quality_gate, version_patch,
			created_ts, updated_ts
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, name, framework, uuid.New().String(), v.String(),
		v.Constellation, v.StarSystem, v.QualityGate, v.Patch, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize project: %w", err)
	}
	return s.Project(ctx)
}

// Project returns the project row, or ErrNotInitialized.
func (s *Store) Project(ctx context.Context) (*ProjectInfo, error) {
	return loadProject(ctx, s.db)
}

func loadProject(ctx context.Context, q querier) (*ProjectInfo, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM project_info WHERE id = 1`)

	var (
		p                  ProjectInfo
		createdTs, updated int64
	)
	err := row.Scan(
		&p.Name, &p.Framework, &p.InstanceID, &p.CurrentVersion,
		&p.Version.Constellation, &p.Version.StarSystem, &p.Version.QualityGate, &p.Version.Patch,
		&p.Phase, &p.Constellation, &p.SubPhase, &p.ContextSummary,
		&createdTs, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	p.CreatedAt = fromMs(createdTs)
	p.UpdatedAt = fromMs(updated)
	return &p, nil
}

// SetPhase moves the current phase pointers. Empty fields are left unchanged.
func (s *Store) SetPhase(ctx context.Context, ptr PhasePointer) error {
	if ptr.Phase == "" && ptr.Constellation == "" && ptr.SubPhase == "" {
		return invalidf("at least one of phase, constellation or sub-phase is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE project_info SET
			current_phase = CASE WHEN ? = '' THEN current_phase ELSE ? END,
			current_constellation = CASE WHEN ? = '' THEN current_constellation ELSE ? END,
			current_sub_phase = CASE WHEN ? = '' THEN current_sub_phase ELSE ? END,
			updated_ts = ?
		WHERE id = 1
	`, ptr.Phase, ptr.Phase, ptr.Constellation, ptr.Constellation, ptr.SubPhase, ptr.SubPhase, s.nowMs())
	if err != nil {
		return fmt.Errorf("failed to set phase: %w", err)
	}
	return requireProjectRow(res)
}

func requireProjectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotInitialized
	}
	return nil
}
