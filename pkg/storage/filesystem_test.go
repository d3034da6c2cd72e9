package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("schedule_job-1.csv", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "schedule_job-1.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	content, err := os.ReadFile(store.Path(rel))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func TestLocalStorageSaveStream(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.SaveStream("nested/schedule.pdf", bytes.NewReader([]byte("pdf-bytes")))
	require.NoError(t, err)

	content, err := os.ReadFile(store.Path(rel))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(content))
}

func TestLocalStorageRejectsEscapingNames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("data"))
	assert.Error(t, err)

	_, err = store.Save(filepath.Join(string(os.PathSeparator), "etc", "passwd"), []byte("data"))
	assert.Error(t, err)

	assert.Equal(t, dir, store.Path("../outside.csv"))
}

func TestLocalStorageDeleteMissingFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete("never-written.csv"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("stale.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh.csv", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("stale.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale.csv"}, deleted)

	_, err = os.Stat(store.Path("fresh.csv"))
	assert.NoError(t, err)
}
