package storage

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveLoadDelete(t *testing.T) {
	fs, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Save("schedule_catalog.json", []byte(`{"groups":[]}`))
	require.NoError(t, err)

	data, err := fs.Load("schedule_catalog.json")
	require.NoError(t, err)
	assert.Equal(t, `{"groups":[]}`, string(data))

	require.NoError(t, fs.Delete("schedule_catalog.json"))
	_, err = fs.Load("schedule_catalog.json")
	require.Error(t, err)

	// Deleting an absent file is not an error.
	assert.NoError(t, fs.Delete("schedule_catalog.json"))
}

func TestLocalStorageSaveStream(t *testing.T) {
	fs, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = fs.SaveStream("nested/schedule.zip", bytes.NewBufferString("archive-bytes"))
	require.NoError(t, err)

	data, err := fs.Load("nested/schedule.zip")
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = fs.Save("old.pdf", []byte("x"))
	require.NoError(t, err)
	_, err = fs.Save("fresh.pdf", []byte("y"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(fs.Path("old.pdf"), past, past))

	deleted, err := fs.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)

	_, err = fs.Load("old.pdf")
	require.Error(t, err)
	_, err = fs.Load("fresh.pdf")
	require.NoError(t, err)
}
