package memory

import (
	"context"
	"fmt"
	"strings"

	nlog "github.com/runger/nebula/internal/log"
)

const checkpointColumns = `
	id, constellation, constellation_index, status,
	automated_total, automated_passed, manual_total, manual_passed,
	tests_skipped, skip_reasons, duration_seconds,
	performance_acceptable, docs_updated, breaking_changes, breaking_change_notes,
	notes, reviewer, reviewer_type, created_ts`

func (in *CheckpointInput) validate() error {
	if strings.TrimSpace(in.Constellation) == "" {
		return invalidf("constellation is required")
	}
	if in.ConstellationIndex < 0 {
		return invalidf("constellation index must be >= 0 (got %d)", in.ConstellationIndex)
	}
	if !in.Status.Valid() {
		return invalidf("status must be passed, failed, pending or skipped (got %q)", in.Status)
	}
	if in.ReviewerType == "" {
		in.ReviewerType = ActorHuman
	}
	if !in.ReviewerType.Valid() {
		return invalidf("reviewer type must be ai or human (got %q)", in.ReviewerType)
	}
	counts := []struct {
		name string
		n    int
	}{
		{"automated total", in.AutomatedTotal},
		{"automated passed", in.AutomatedPassed},
		{"manual total", in.ManualTotal},
		{"manual passed", in.ManualPassed},
		{"tests skipped", in.TestsSkipped},
		{"duration", in.DurationSeconds},
	}
	for _, c := range counts {
		if c.n < 0 {
			return invalidf("%s must be >= 0 (got %d)", c.name, c.n)
		}
	}
	if in.AutomatedPassed > in.AutomatedTotal {
		return invalidf("automated passed (%d) exceeds total (%d)", in.AutomatedPassed, in.AutomatedTotal)
	}
	if in.ManualPassed > in.ManualTotal {
		return invalidf("manual passed (%d) exceeds total (%d)", in.ManualPassed, in.ManualTotal)
	}
	return nil
}

// RecordCheckpoint stores a checkpoint attempt. Skipped tests are reported
// as a warning; the row is written regardless.
func (s *Store) RecordCheckpoint(ctx context.Context, in CheckpointInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	reasons, err := encodeList(in.SkipReasons)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (
			constellation, constellation_index, status,
			automated_total, automated_passed, manual_total, manual_passed,
			tests_skipped, skip_reasons, duration_seconds,
			performance_acceptable, docs_updated, breaking_changes, breaking_change_notes,
			notes, reviewer, reviewer_type, created_ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Constellation, in.ConstellationIndex, string(in.Status),
		in.AutomatedTotal, in.AutomatedPassed, in.ManualTotal, in.ManualPassed,
		in.TestsSkipped, reasons, in.DurationSeconds,
		boolToInt(in.PerformanceAcceptable), boolToInt(in.DocsUpdated), boolToInt(in.BreakingChanges),
		in.BreakingChangeNotes, in.Notes, in.Reviewer, string(in.ReviewerType), s.nowMs())
	if err != nil {
		return 0, fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoint id: %w", err)
	}

	if in.TestsSkipped > 0 {
		nlog.LogSkippedTests(s.logger, in.Constellation, in.TestsSkipped, in.SkipReasons)
	}
	return id, nil
}

// CheckpointSummary aggregates every checkpoint ever recorded.
func (s *Store) CheckpointSummary(ctx context.Context) (*CheckpointSummary, error) {
	var sum CheckpointSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(status = 'passed'), 0),
			COALESCE(SUM(status = 'failed'), 0),
			COALESCE(SUM(status = 'pending'), 0),
			COALESCE(SUM(status = 'skipped'), 0),
			COALESCE(SUM(tests_skipped), 0)
		FROM checkpoints
	`).Scan(&sum.Total, &sum.Passed, &sum.Failed, &sum.Pending, &sum.Skipped, &sum.TestsSkipped)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize checkpoints: %w", err)
	}
	return &sum, nil
}

// ListCheckpoints returns checkpoints for one constellation index, or all of
// them when index is negative, newest first.
func (s *Store) ListCheckpoints(ctx context.Context, index int) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+checkpointColumns+` FROM checkpoints
		WHERE ? < 0 OR constellation_index = ?
		ORDER BY created_ts DESC, id DESC
	`, index, index)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var (
			c                             Checkpoint
			status, reasons, reviewerType string
			perf, docs, breaking          int
			createdTs                     int64
		)
		if err := rows.Scan(&c.ID, &c.Constellation, &c.ConstellationIndex, &status,
			&c.AutomatedTotal, &c.AutomatedPassed, &c.ManualTotal, &c.ManualPassed,
			&c.TestsSkipped, &reasons, &c.DurationSeconds,
			&perf, &docs, &breaking, &c.BreakingChangeNotes,
			&c.Notes, &c.Reviewer, &reviewerType, &createdTs); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		if c.SkipReasons, err = decodeList(reasons); err != nil {
			return nil, err
		}
		c.Status = CheckpointStatus(status)
		c.ReviewerType = Actor(reviewerType)
		c.PerformanceAcceptable = perf != 0
		c.DocsUpdated = docs != 0
		c.BreakingChanges = breaking != 0
		c.CreatedAt = fromMs(createdTs)
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordQualityGate stores a legacy pass/fail gate outcome.
func (s *Store) RecordQualityGate(ctx context.Context, in QualityGateInput) (int64, error) {
	if strings.TrimSpace(in.GateName) == "" {
		return 0, invalidf("gate name is required")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quality_gates (phase, constellation, gate_name, passed, details, checked_ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, in.Phase, in.Constellation, in.GateName, boolToInt(in.Passed), in.Details, s.nowMs())
	if err != nil {
		return 0, fmt.Errorf("failed to insert quality gate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get quality gate id: %w", err)
	}
	return id, nil
}

// ListQualityGates returns legacy gate outcomes, newest first.
func (s *Store) ListQualityGates(ctx context.Context, limit int) ([]QualityGate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phase, constellation, gate_name, passed, details, checked_ts
		FROM quality_gates ORDER BY checked_ts DESC, id DESC LIMIT ?
	`, clampLimit(limit, DefaultListLimit, 1000))
	if err != nil {
		return nil, fmt.Errorf("failed to list quality gates: %w", err)
	}
	defer rows.Close()

	var out []QualityGate
	for rows.Next() {
		var (
			g         QualityGate
			passed    int
			checkedTs int64
		)
		if err := rows.Scan(&g.ID, &g.Phase, &g.Constellation, &g.GateName, &passed,
			&g.Details, &checkedTs); err != nil {
			return nil, fmt.Errorf("failed to scan quality gate: %w", err)
		}
		g.Passed = passed != 0
		g.CheckedAt = fromMs(checkedTs)
		out = append(out, g)
	}
	return out, rows.Err()
}
