package index

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIndex_PersistsMappings(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewEventIndex(dir)
	require.NoError(t, err)

	idx.Set("page-1", "evt-1")
	idx.Set("page-2", "evt-2")
	idx.Remove("page-2")
	require.NoError(t, idx.Save())

	reloaded, err := NewEventIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", reloaded.Get("page-1"))
	assert.Equal(t, "", reloaded.Get("page-2"))
}

func TestEventIndex_SaveSkipsCleanIndex(t *testing.T) {
	idx, err := NewEventIndex(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, idx.Save())
	_, err = os.Stat(idx.Path)
	assert.True(t, os.IsNotExist(err))

	idx.Set("page-1", "evt-1")
	require.NoError(t, idx.Save())
	_, err = os.Stat(idx.Path)
	assert.NoError(t, err)
}

func TestNewEventIndex_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewEventIndex(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(idx.Path, []byte("{not json"), 0600))

	_, err = NewEventIndex(dir)
	assert.Error(t, err)
}

func TestNewEventIndex_NullFile(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewEventIndex(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(idx.Path, []byte("null"), 0600))

	idx, err = NewEventIndex(dir)
	require.NoError(t, err)
	idx.Set("page-1", "evt-1")
	assert.Equal(t, "evt-1", idx.Get("page-1"))
}
