package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadsweep/internal/tui/views"
)

func TestHistoryKeepsNewestRuns(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assert.Empty(t, LoadHistory())

	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < maxHistory+2; i++ {
		require.NoError(t, SaveRun(views.RunRecord{
			ConfigPath: "leadsweep.yaml",
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
			Admitted:   int64(i),
		}))
	}

	got := LoadHistory()
	require.Len(t, got, maxHistory)
	assert.Equal(t, int64(maxHistory+1), got[0].Admitted)
	assert.True(t, got[0].FinishedAt.Equal(base.Add(time.Duration(maxHistory+1)*time.Minute)))
}

func TestHistoryCorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "leadsweep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leadsweep", "runs.json"), []byte("{nope"), 0o644))

	assert.Empty(t, LoadHistory())
	require.NoError(t, SaveRun(views.RunRecord{Admitted: 1}))
	assert.Len(t, LoadHistory(), 1)
}
