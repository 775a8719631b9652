package memory

import (
	"context"
	"database/sql"
	"fmt"

	nlog "github.com/runger/nebula/internal/log"
	"github.com/runger/nebula/internal/version"
)

// BumpVersion increments one version component, records the bump as a
// decision and appends it to the version history, all in one transaction.
// The decision's phase labels come from the constellation before the bump.
func (s *Store) BumpVersion(ctx context.Context, c version.Component, opts BumpOptions) (version.Version, error) {
	if !c.Valid() {
		return version.Version{}, fmt.Errorf("%w: %q", version.ErrUnknownComponent, string(c))
	}
	decidedBy := opts.DecidedBy
	if decidedBy == "" {
		decidedBy = ActorAI
	}
	if !decidedBy.Valid() {
		return version.Version{}, invalidf("decided_by must be ai or human (got %q)", decidedBy)
	}

	var from, to version.Version
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := loadProject(ctx, tx)
		if err != nil {
			return err
		}
		from = p.Version
		if to, err = from.Bump(c, !opts.KeepLower); err != nil {
			return err
		}

		now := s.nowMs()
		if err := writeVersion(ctx, tx, to, now); err != nil {
			return err
		}

		phase, constellation := constellationLabels(from.Constellation)
		rationale := opts.Changelog
		if rationale == "" {
			rationale = fmt.Sprintf("%s bump from %s to %s", c, from, to)
		}
		_, err = insertDecision(ctx, tx, DecisionInput{
			Phase:         phase,
			Constellation: constellation,
			Category:      CategoryVersionBump,
			Question:      fmt.Sprintf("Bump %s version", c),
			Chosen:        to.String(),
			Alternatives:  []string{from.String()},
			Rationale:     rationale,
			DecidedBy:     decidedBy,
		}, now)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, to, phase, constellation, opts.Changelog, opts.Tag, now)
	})
	if err != nil {
		return version.Version{}, err
	}

	nlog.LogVersionBumped(s.logger, string(c), from.String(), to.String())
	return to, nil
}

// SetVersion overwrites the version without any monotonicity check and
// appends the new value to the history.
func (s *Store) SetVersion(ctx context.Context, v version.Version) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := loadProject(ctx, tx)
		if err != nil {
			return err
		}
		now := s.nowMs()
		if err := writeVersion(ctx, tx, v, now); err != nil {
			return err
		}
		return appendHistory(ctx, tx, v, p.Phase, p.Constellation, "", "", now)
	})
}

// CurrentVersion returns the project's version.
func (s *Store) CurrentVersion(ctx context.Context) (version.Version, error) {
	p, err := s.Project(ctx)
	if err != nil {
		return version.Version{}, err
	}
	return p.Version, nil
}

// VersionHistory returns recorded versions, newest first.
func (s *Store) VersionHistory(ctx context.Context, limit int) ([]VersionHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, phase, constellation, changelog, tag, created_ts
		FROM version_history
		ORDER BY created_ts DESC, id DESC
		LIMIT ?
	`, clampLimit(limit, DefaultListLimit, 1000))
	if err != nil {
		return nil, fmt.Errorf("failed to list version history: %w", err)
	}
	defer rows.Close()

	var out []VersionHistoryEntry
	for rows.Next() {
		var (
			e         VersionHistoryEntry
			createdTs int64
		)
		if err := rows.Scan(&e.ID, &e.Version, &e.Phase, &e.Constellation,
			&e.Changelog, &e.Tag, &createdTs); err != nil {
			return nil, fmt.Errorf("failed to scan version history: %w", err)
		}
		e.CreatedAt = fromMs(createdTs)
		out = append(out, e)
	}
	return out, rows.Err()
}

// writeVersion stores the tuple and its string form together.
func writeVersion(ctx context.Context, tx *sql.Tx, v version.Version, now int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE project_info SET
			current_version = ?,
			version_constellation = ?,
			version_star_system = ?,
			version_quality_gate = ?,
			version_patch = ?,
			updated_ts = ?
		WHERE id = 1
	`, v.String(), v.Constellation, v.StarSystem, v.QualityGate, v.Patch, now)
	if err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	return requireProjectRow(res)
}

func appendHistory(ctx context.Context, tx *sql.Tx, v version.Version, phase, constellation, changelog, tag string, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO version_history (version, phase, constellation, changelog, tag, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.String(), phase, constellation, changelog, tag, now)
	if err != nil {
		return fmt.Errorf("failed to append version history: %w", err)
	}
	return nil
}

func constellationLabels(n int) (phase, constellation string) {
	return fmt.Sprintf("C%d", n), fmt.Sprintf("Constellation %d", n)
}
