package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"single", "src/app.tsx", []string{"src/app.tsx"}},
		{"commas", "a.ts,b.ts,,c.ts", []string{"a.ts", "b.ts", "c.ts"}},
		{"spaces", "a.ts b.ts", []string{"a.ts", "b.ts"}},
		{"quoted", `src/app.tsx 'src/my file.ts' "x y"`, []string{"src/app.tsx", "src/my file.ts", "x y"}},
		{"commas with spaces", "flaky login,slow CI", []string{"flaky login", "slow CI"}},
		{"commas and quotes", "flaky e2e,'needs staging db'", []string{"flaky e2e", "needs staging db"}},
		{"quoted comma", `'a, b' c`, []string{"a, b", "c"}},
		{"quoted comma in list", `"x, y",z`, []string{"x, y", "z"}},
		{"trailing comma", "a b, ", []string{"a b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitList(tt.in)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitList_UnterminatedQuote(t *testing.T) {
	_, err := splitList(`'open ended`)
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b\t\tc", 10))
	assert.Equal(t, "héllo w…", truncate("héllo world", 8))
	assert.Equal(t, "abc", truncate("abc", 1))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.0 KB", formatSize(1024))
	assert.Equal(t, "1.5 MB", formatSize(1536*1024))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", formatTime(time.Time{}))
	ts := time.Date(2026, 3, 4, 5, 6, 0, 0, time.Local)
	assert.Equal(t, "2026-03-04 05:06", formatTime(ts))
}

func TestParseID(t *testing.T) {
	id, err := parseID("42", "error")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = parseID("#7", "error")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"0", "-3", "x1", ""} {
		_, err := parseID(bad, "error")
		assert.Error(t, err, bad)
	}
}

func TestReadStack(t *testing.T) {
	got, err := readStack(nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = readStack(strings.NewReader("line 1\nline 2\n\n"), "-")
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2", got)

	_, err = readStack(nil, "/does/not/exist")
	require.Error(t, err)
}
