package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCheckpoint_SkippedTestsWarn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var logs bytes.Buffer
	s := newTestStore(t, withLogBuffer(&logs))

	id, err := s.RecordCheckpoint(ctx, CheckpointInput{
		Constellation:      "Constellation 1",
		ConstellationIndex: 1,
		Status:             CheckpointPassed,
		AutomatedTotal:     10,
		AutomatedPassed:    7,
		TestsSkipped:       3,
		SkipReasons:        []string{"flaky"},
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	var warn map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["level"] == "WARN" {
			warn = entry
		}
	}
	require.NotNil(t, warn, "expected a WARN entry, got:\n%s", logs.String())
	assert.EqualValues(t, 3, warn["tests_skipped"])
	assert.Equal(t, []any{"flaky"}, warn["skip_reasons"])

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TestsSkipped, 3)
	assert.Equal(t, 1, stats.CheckpointsPassed)

	list, err := s.ListCheckpoints(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].TestsSkipped)
	assert.Equal(t, []string{"flaky"}, list[0].SkipReasons)
}

func TestRecordCheckpoint_NoWarningWithoutSkips(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	s := newTestStore(t, withLogBuffer(&logs))
	logs.Reset()

	_, err := s.RecordCheckpoint(context.Background(), CheckpointInput{
		Constellation: "Constellation 1", ConstellationIndex: 1, Status: CheckpointFailed,
	})
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), `"level":"WARN"`)
}

func TestRecordCheckpoint_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	in := CheckpointInput{
		Constellation:         "Constellation 2",
		ConstellationIndex:    2,
		Status:                CheckpointFailed,
		AutomatedTotal:        20,
		AutomatedPassed:       18,
		ManualTotal:           4,
		ManualPassed:          4,
		DurationSeconds:       95,
		PerformanceAcceptable: true,
		DocsUpdated:           true,
		BreakingChanges:       true,
		BreakingChangeNotes:   "renamed API",
		Notes:                 "two integration tests failing",
		Reviewer:              "dana",
		ReviewerType:          ActorHuman,
	}
	_, err := s.RecordCheckpoint(ctx, in)
	require.NoError(t, err)

	list, err := s.ListCheckpoints(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	c := list[0]
	assert.Equal(t, CheckpointFailed, c.Status)
	assert.Equal(t, 18, c.AutomatedPassed)
	assert.Equal(t, 4, c.ManualTotal)
	assert.Equal(t, 95, c.DurationSeconds)
	assert.True(t, c.PerformanceAcceptable)
	assert.True(t, c.DocsUpdated)
	assert.True(t, c.BreakingChanges)
	assert.Equal(t, "renamed API", c.BreakingChangeNotes)
	assert.Equal(t, "dana", c.Reviewer)
	assert.Equal(t, ActorHuman, c.ReviewerType)
	assert.Empty(t, c.SkipReasons)

	none, err := s.ListCheckpoints(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordCheckpoint_Validation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := CheckpointInput{Constellation: "Constellation 1", ConstellationIndex: 1, Status: CheckpointPassed}

	tests := []struct {
		name   string
		mutate func(*CheckpointInput)
	}{
		{"missing constellation", func(in *CheckpointInput) { in.Constellation = "" }},
		{"negative index", func(in *CheckpointInput) { in.ConstellationIndex = -1 }},
		{"unknown status", func(in *CheckpointInput) { in.Status = "done" }},
		{"negative skipped", func(in *CheckpointInput) { in.TestsSkipped = -2 }},
		{"passed exceeds total", func(in *CheckpointInput) { in.AutomatedTotal, in.AutomatedPassed = 1, 2 }},
		{"manual passed exceeds total", func(in *CheckpointInput) { in.ManualPassed = 1 }},
		{"unknown reviewer type", func(in *CheckpointInput) { in.ReviewerType = "bot" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := s.RecordCheckpoint(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCheckpointSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	for i, st := range []CheckpointStatus{CheckpointPassed, CheckpointFailed, CheckpointFailed, CheckpointSkipped, CheckpointPending} {
		_, err := s.RecordCheckpoint(ctx, CheckpointInput{
			Constellation: "Constellation 1", ConstellationIndex: 1, Status: st, TestsSkipped: i,
		})
		require.NoError(t, err)
	}

	sum, err := s.CheckpointSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, CheckpointSummary{Total: 5, Passed: 1, Failed: 2, Pending: 1, Skipped: 1, TestsSkipped: 10}, *sum)

	all, err := s.ListCheckpoints(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestCheckpointSummary_Empty(t *testing.T) {
	t.Parallel()

	sum, err := newTestStore(t).CheckpointSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CheckpointSummary{}, *sum)
}

func TestRecordQualityGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordQualityGate(ctx, QualityGateInput{Phase: "C1", GateName: "lint", Passed: true})
	require.NoError(t, err)
	_, err = s.RecordQualityGate(ctx, QualityGateInput{Phase: "C1", GateName: "e2e", Details: "timeout"})
	require.NoError(t, err)
	_, err = s.RecordQualityGate(ctx, QualityGateInput{Phase: "C1"})
	require.ErrorIs(t, err, ErrInvalidInput)

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.QualityGatesPassed)
	assert.Equal(t, 2, stats.QualityGatesTotal)

	gates, err := s.ListQualityGates(ctx, 0)
	require.NoError(t, err)
	require.Len(t, gates, 2)
	assert.Equal(t, "e2e", gates[0].GateName)
	assert.False(t, gates[0].Passed)
}

func TestParseCheckpointStatus(t *testing.T) {
	t.Parallel()

	st, err := ParseCheckpointStatus("SKIPPED")
	require.NoError(t, err)
	assert.Equal(t, CheckpointSkipped, st)

	_, err = ParseCheckpointStatus("ok")
	require.ErrorIs(t, err, ErrInvalidInput)
}
