package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/nebula/internal/signature"
	"github.com/runger/nebula/internal/version"
)

func TestStatistics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	a := logTestError(t, s, "E1", "first")
	logTestError(t, s, "E1", "first")
	logTestError(t, s, "", "second")
	_, err := s.RecordSolution(ctx, SolutionInput{ErrorID: a.ErrorID, Description: "fix", AppliedBy: ActorAI})
	require.NoError(t, err)
	_, err = s.RecordDecision(ctx, DecisionInput{Category: "arch", Question: "db?", Chosen: "sqlite", DecidedBy: ActorHuman})
	require.NoError(t, err)
	_, err = s.RecordCheckpoint(ctx, CheckpointInput{Constellation: "Constellation 1", ConstellationIndex: 1, Status: CheckpointSkipped, TestsSkipped: 2})
	require.NoError(t, err)
	require.NoError(t, s.SetPhase(ctx, PhasePointer{Phase: "C3"}))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, Statistics{
		TotalErrors:        3,
		UnresolvedErrors:   2,
		ErrorPatterns:      2,
		Decisions:          1,
		CheckpointsSkipped: 1,
		CheckpointsTotal:   1,
		TestsSkipped:       2,
		CurrentVersion:     "1.0.0.0",
		CurrentPhase:       "C3",
	}, *stats)
}

func TestStatistics_Uninitialized(t *testing.T) {
	t.Parallel()

	stats, err := newTestStore(t, uninitialized()).Statistics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats.CurrentVersion)
	assert.Zero(t, stats.TotalErrors)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, withClock(clock))

	old := logTestError(t, s, "", "stale failure")
	clock.Advance(48 * time.Hour)

	var ids []int64
	for _, msg := range []string{"a", "b", "c"} {
		ids = append(ids, logTestError(t, s, "", msg).ErrorID)
	}
	for i, rating := range []int{5, 4} {
		_, err := s.RecordSolution(ctx, SolutionInput{ErrorID: ids[i], Description: "fix", AppliedBy: ActorAI, Effectiveness: rating})
		require.NoError(t, err)
	}
	_, err := s.RecordSolution(ctx, SolutionInput{ErrorID: old.ErrorID, Description: "manual", AppliedBy: ActorHuman, Effectiveness: 1})
	require.NoError(t, err)
	_, err = s.BumpVersion(ctx, version.Patch, BumpOptions{})
	require.NoError(t, err)

	m, err := s.Metrics(ctx)
	require.NoError(t, err)
	// 4 errors over 1 milestone.
	assert.InDelta(t, 4.0, m.QualityRatio, 1e-9)
	assert.InDelta(t, 4.5, m.AIEffectiveness, 1e-9)
	// 3 recent errors + 3 solutions + 1 bump decision.
	assert.Equal(t, 7, m.DailyVelocity)
}

func TestMetrics_NoMilestones(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	logTestError(t, s, "", "a")
	logTestError(t, s, "", "b")
	logTestError(t, s, "", "c")

	m, err := s.Metrics(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 3.0, m.QualityRatio, 1e-9)
	assert.Zero(t, m.AIEffectiveness)
}

func TestRefreshContextSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, withClock(clock))

	logTestError(t, s, "", "old")
	clock.Advance(25 * time.Hour)
	logTestError(t, s, "", "new")

	summary, err := s.RefreshContextSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Project Status: ACTIVE. Recent Errors (24h): 1. Last Milestone: Project Initialized. Current Version: 1.0.0.0.", summary)

	_, err = s.BumpVersion(ctx, version.QualityGate, BumpOptions{})
	require.NoError(t, err)
	summary, err = s.RefreshContextSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Project Status: ACTIVE. Recent Errors (24h): 1. Last Milestone: 1.0.1.0. Current Version: 1.0.1.0.", summary)

	p, err := s.Project(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary, p.ContextSummary)

	_, err = newTestStore(t, uninitialized()).RefreshContextSummary(ctx)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestExportJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	res := logTestError(t, s, "E1", "boom")
	_, err := s.RecordSolution(ctx, SolutionInput{ErrorID: res.ErrorID, Description: "fix", AppliedBy: ActorHuman, Effectiveness: 4})
	require.NoError(t, err)
	_, err = s.RecordDecision(ctx, DecisionInput{Category: "arch", Question: "q", Chosen: "a", Alternatives: []string{"b"}, DecidedBy: ActorAI})
	require.NoError(t, err)
	_, err = s.RecordQualityGate(ctx, QualityGateInput{GateName: "lint", Passed: true})
	require.NoError(t, err)
	_, err = s.RecordCheckpoint(ctx, CheckpointInput{Constellation: "Constellation 1", ConstellationIndex: 1, Status: CheckpointPassed})
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err = s.SaveContextSnapshot(ctx, SnapshotInput{Phase: "C1"})
		require.NoError(t, err)
	}
	_, err = s.BumpVersion(ctx, version.StarSystem, BumpOptions{})
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := s.ExportJSON(ctx, filepath.Join(dir, "exports", "memory.json"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc ExportDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NotNil(t, doc.Project)
	assert.Equal(t, "demo", doc.Project.Name)
	assert.Equal(t, "1.1.0.0", doc.Project.CurrentVersion)
	assert.Len(t, doc.Errors, 1)
	assert.Len(t, doc.ErrorPatterns, 1)
	assert.Len(t, doc.Solutions, 1)
	assert.Len(t, doc.Decisions, 2)
	assert.Len(t, doc.QualityGates, 1)
	assert.Len(t, doc.Checkpoints, 1)
	assert.Len(t, doc.ContextSnapshots, ExportSnapshotLimit)
	assert.Len(t, doc.VersionHistory, 1)
	assert.Equal(t, 1, doc.Statistics.TotalErrors)
	assert.Equal(t, SchemaVersion, doc.SchemaVersion)

	_, err = s.ExportJSON(ctx, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSeedPatterns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	seed := `framework: nextjs
patterns:
  - error_code: MODULE_NOT_FOUND
    message: "Cannot find module 'react'"
    common_cause: dependency not installed
    recommended_solution: run npm install
  - message: Hydration failed because the initial UI does not match
    recommended_solution: render client-only content in useEffect
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nextjs.yaml"), []byte(seed), 0o600))

	patterns, err := LoadSeedFile(dir, "NextJS")
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "MODULE_NOT_FOUND", patterns[0].ErrorCode)

	s := newTestStore(t)
	added, err := s.SeedPatterns(ctx, patterns)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = s.SeedPatterns(ctx, patterns)
	require.NoError(t, err)
	assert.Zero(t, added, "seeding is idempotent")

	p, err := s.GetPattern(ctx, signature.Compute("Cannot find module 'react'", "MODULE_NOT_FOUND"))
	require.NoError(t, err)
	assert.Zero(t, p.Occurrences)
	assert.Equal(t, "dependency not installed", p.CommonCause)

	res := logTestError(t, s, "MODULE_NOT_FOUND", `Cannot find module "react"`)
	assert.True(t, res.PatternFound)
	assert.Equal(t, 1, res.Occurrences)
	assert.Equal(t, "run npm install", res.RecommendedSolution)
}

func TestLoadSeedFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := LoadSeedFile(dir, "django")
	require.ErrorIs(t, err, ErrSeedNotFound)

	_, err = LoadSeedFile(dir, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rails.yaml"), []byte("patterns:\n  - error_code: X\n"), 0o600))
	_, err = LoadSeedFile(dir, "rails")
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "vue.yaml"), []byte("patterns: [:"), 0o600))
	_, err = LoadSeedFile(dir, "vue")
	require.Error(t, err)
}
