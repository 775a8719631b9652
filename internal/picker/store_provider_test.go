package picker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/nebula/internal/memory"
)

func openTestStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.Open(context.Background(), memory.Options{
		Path:        filepath.Join(t.TempDir(), ".nebula", "memory.db"),
		ProjectName: "demo",
		Framework:   "nextjs",
		SkipLock:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedErrors(t *testing.T, s *memory.Store) (resolvedID int64) {
	t.Helper()
	ctx := context.Background()
	for _, in := range []memory.ErrorInput{
		{Level: memory.LevelError, Phase: "C1", Code: "MODULE_NOT_FOUND", Message: "Cannot find module 'react'"},
		{Level: memory.LevelCritical, Phase: "C1", Message: "Hydration failed because the initial UI does not match"},
		{Level: memory.LevelError, Phase: "C2", Message: "Cannot find module 'zod'"},
	} {
		res, err := s.LogError(ctx, in)
		require.NoError(t, err)
		resolvedID = res.ErrorID
	}
	_, err := s.RecordSolution(ctx, memory.SolutionInput{
		ErrorID: resolvedID, Description: "npm install zod", AppliedBy: memory.ActorAI, Effectiveness: 5,
	})
	require.NoError(t, err)
	return resolvedID
}

func TestStoreProvider_Tabs(t *testing.T) {
	s := openTestStore(t)
	resolvedID := seedErrors(t, s)
	p := NewStoreProvider(s)
	ctx := context.Background()

	resp, err := p.Fetch(ctx, Request{RequestID: 7, TabID: TabUnresolved, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), resp.RequestID)
	assert.True(t, resp.AtEnd)
	require.Len(t, resp.Items, 2)
	for _, item := range resp.Items {
		assert.NotEqual(t, resolvedID, item.ID)
		assert.Equal(t, KindError, item.Kind)
	}
	assert.Equal(t, "CRITICAL C1", resp.Items[0].Detail)
	assert.Equal(t, "MODULE_NOT_FOUND: Cannot find module 'react'", resp.Items[1].Title)

	resp, err = p.Fetch(ctx, Request{TabID: TabAll, Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, resolvedID, resp.Items[0].ID)
	assert.Equal(t, "ERROR C2 resolved", resp.Items[0].Detail)

	resp, err = p.Fetch(ctx, Request{TabID: TabPatterns, Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	for _, item := range resp.Items {
		assert.Equal(t, KindPattern, item.Kind)
		assert.NotEmpty(t, item.Key)
	}
}

func TestStoreProvider_Query(t *testing.T) {
	s := openTestStore(t)
	resolvedID := seedErrors(t, s)
	p := NewStoreProvider(s)
	ctx := context.Background()

	resp, err := p.Fetch(ctx, Request{TabID: TabAll, Query: "Cannot find module", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)

	resp, err = p.Fetch(ctx, Request{TabID: TabUnresolved, Query: "Cannot find module", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.NotEqual(t, resolvedID, resp.Items[0].ID)

	resp, err = p.Fetch(ctx, Request{TabID: TabPatterns, Query: "HYDRATION", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Contains(t, resp.Items[0].Title, "Hydration failed")

	resp, err = p.Fetch(ctx, Request{TabID: TabPatterns, Query: "module_not", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1x", resp.Items[0].Detail)
}

func TestStoreProvider_Paging(t *testing.T) {
	s := openTestStore(t)
	seedErrors(t, s)
	p := NewStoreProvider(s)
	ctx := context.Background()

	first, err := p.Fetch(ctx, Request{TabID: TabAll, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.False(t, first.AtEnd)

	second, err := p.Fetch(ctx, Request{TabID: TabAll, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.True(t, second.AtEnd)
	assert.NotEqual(t, first.Items[1].ID, second.Items[0].ID)

	past, err := p.Fetch(ctx, Request{TabID: TabAll, Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.True(t, past.AtEnd)
}

func TestStoreProvider_PatternSuccessDetail(t *testing.T) {
	s := openTestStore(t)
	seedErrors(t, s)

	resp, err := NewStoreProvider(s).Fetch(context.Background(), Request{TabID: TabPatterns, Query: "zod"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1x fix 100%", resp.Items[0].Detail)
}

type failingSource struct{}

func (failingSource) ListErrors(context.Context, memory.ErrorQuery) ([]memory.ErrorRecord, error) {
	return nil, errors.New("disk I/O error")
}

func (failingSource) FindSimilarErrors(context.Context, memory.SimilarQuery) ([]memory.SimilarError, error) {
	return nil, errors.New("disk I/O error")
}

func (failingSource) GetPatterns(context.Context, memory.PatternQuery) ([]memory.ErrorPattern, error) {
	return nil, errors.New("disk I/O error")
}

func TestStoreProvider_Errors(t *testing.T) {
	p := NewStoreProvider(failingSource{})

	_, err := p.Fetch(context.Background(), Request{TabID: TabAll})
	assert.ErrorContains(t, err, "disk I/O error")

	_, err = p.Fetch(context.Background(), Request{TabID: "history"})
	assert.ErrorContains(t, err, `unknown tab "history"`)
}
