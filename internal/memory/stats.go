package memory

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Statistics counts rows across the store. Version and phase are empty when
// the project has not been initialized.
func (s *Store) Statistics(ctx context.Context) (*Statistics, error) {
	var st Statistics
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM errors),
			(SELECT COUNT(*) FROM errors WHERE resolved = 0),
			(SELECT COUNT(*) FROM error_patterns),
			(SELECT COUNT(*) FROM decisions),
			(SELECT COUNT(*) FROM quality_gates WHERE passed = 1),
			(SELECT COUNT(*) FROM quality_gates),
			(SELECT COUNT(*) FROM checkpoints WHERE status = 'passed'),
			(SELECT COUNT(*) FROM checkpoints WHERE status = 'failed'),
			(SELECT COUNT(*) FROM checkpoints WHERE status = 'skipped'),
			(SELECT COUNT(*) FROM checkpoints),
			(SELECT COALESCE(SUM(tests_skipped), 0) FROM checkpoints),
			COALESCE((SELECT current_version FROM project_info WHERE id = 1), ''),
			COALESCE((SELECT current_phase FROM project_info WHERE id = 1), '')
	`).Scan(
		&st.TotalErrors, &st.UnresolvedErrors, &st.ErrorPatterns, &st.Decisions,
		&st.QualityGatesPassed, &st.QualityGatesTotal,
		&st.CheckpointsPassed, &st.CheckpointsFailed, &st.CheckpointsSkipped, &st.CheckpointsTotal,
		&st.TestsSkipped, &st.CurrentVersion, &st.CurrentPhase,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}
	return &st, nil
}

// Metrics derives quality and velocity figures:
//   - quality ratio: errors per recorded milestone (version history row)
//   - AI effectiveness: mean rating of rated solutions applied by ai
//   - daily velocity: errors, solutions, decisions and checkpoints created in the last 24h
func (s *Store) Metrics(ctx context.Context) (*Metrics, error) {
	since := s.now().Add(-24 * time.Hour).UnixMilli()

	var (
		errorCount, milestones int
		aiAvg                  float64
		m                      Metrics
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM errors),
			(SELECT COUNT(*) FROM version_history),
			COALESCE((SELECT AVG(effectiveness) FROM solutions
				WHERE applied_by = 'ai' AND effectiveness IS NOT NULL), 0.0),
			(SELECT COUNT(*) FROM errors WHERE created_ts >= ?) +
			(SELECT COUNT(*) FROM solutions WHERE applied_ts >= ?) +
			(SELECT COUNT(*) FROM decisions WHERE created_ts >= ?) +
			(SELECT COUNT(*) FROM checkpoints WHERE created_ts >= ?)
	`, since, since, since, since).Scan(&errorCount, &milestones, &aiAvg, &m.DailyVelocity)
	if err != nil {
		return nil, fmt.Errorf("failed to compute metrics: %w", err)
	}

	m.QualityRatio = round2(float64(errorCount) / float64(max(milestones, 1)))
	m.AIEffectiveness = round2(aiAvg)
	return &m, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
