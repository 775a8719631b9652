package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// noMilestone stands in for the last milestone before any version is recorded.
const noMilestone = "Project Initialized"

// RefreshContextSummary recomputes the one-line project status, stores it on
// the project row and returns it.
func (s *Store) RefreshContextSummary(ctx context.Context) (string, error) {
	var summary string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := loadProject(ctx, tx)
		if err != nil {
			return err
		}

		since := s.now().Add(-24 * time.Hour).UnixMilli()
		var recent int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM errors WHERE created_ts >= ?
		`, since).Scan(&recent); err != nil {
			return fmt.Errorf("failed to count recent errors: %w", err)
		}

		milestone := noMilestone
		err = tx.QueryRowContext(ctx, `
			SELECT version FROM version_history ORDER BY created_ts DESC, id DESC LIMIT 1
		`).Scan(&milestone)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to load last milestone: %w", err)
		}

		summary = fmt.Sprintf("Project Status: ACTIVE. Recent Errors (24h): %d. Last Milestone: %s. Current Version: %s.",
			recent, milestone, p.CurrentVersion)

		res, err := tx.ExecContext(ctx, `
			UPDATE project_info SET context_summary = ?, updated_ts = ? WHERE id = 1
		`, summary, s.nowMs())
		if err != nil {
			return fmt.Errorf("failed to store context summary: %w", err)
		}
		return requireProjectRow(res)
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}
