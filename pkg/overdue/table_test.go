package overdue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Sweep(t *testing.T) {
	tbl, err := NewTable(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tbl.Update("past", "evt-1", "Essay", now.Add(-time.Hour))
	tbl.Update("future", "evt-2", "Exam", now.Add(time.Hour))

	swept := tbl.Sweep(now)
	require.Len(t, swept, 1)
	assert.Equal(t, Entry{EventID: "evt-1", Summary: "Essay", Due: now.Add(-time.Hour)}, swept[0])
	assert.NotContains(t, tbl.Entries, "past")
	assert.Contains(t, tbl.Entries, "future")
}

func TestTable_UpdateZeroDueRemoves(t *testing.T) {
	tbl, err := NewTable(t.TempDir())
	require.NoError(t, err)

	tbl.Update("p", "evt", "Essay", time.Now())
	tbl.Update("p", "evt", "Essay", time.Time{})
	assert.Empty(t, tbl.Entries)
}

func TestTable_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	tbl, err := NewTable(dir)
	require.NoError(t, err)

	due := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	tbl.Update("p", "evt", "Essay", due)
	require.NoError(t, tbl.Save())

	reloaded, err := NewTable(dir)
	require.NoError(t, err)
	require.Contains(t, reloaded.Entries, "p")
	assert.True(t, due.Equal(reloaded.Entries["p"].Due))
	assert.Equal(t, "evt", reloaded.Entries["p"].EventID)
}
