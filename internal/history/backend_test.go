package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techchat/internal/logger"
)

// backendContract runs the behaviour every Backend must share
func backendContract(t *testing.T, b Backend) {
	t.Helper()

	_, ok, err := b.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set("k", "v1"))
	v, ok, err := b.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, b.Set("k", "v2"))
	v, _, _ = b.Get("k")
	assert.Equal(t, "v2", v)

	require.NoError(t, b.Remove("k"))
	_, ok, _ = b.Get("k")
	assert.False(t, ok)

	require.NoError(t, b.Remove("k"), "removing a missing key is not an error")
}

func TestMemoryBackend(t *testing.T) {
	backendContract(t, NewMemoryBackend())
}

func TestFileBackend(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "nested", "dir"))
	require.NoError(t, err)
	backendContract(t, b)
}

func TestFileBackend_NoTempFileLeft(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Set(StorageKey, "[]"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StorageKey+".json", entries[0].Name())
}

func TestSQLiteBackend(t *testing.T) {
	b, err := OpenSQLiteBackend(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	backendContract(t, b)
}

func TestSQLiteBackend_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	b, err := OpenSQLiteBackend(path)
	require.NoError(t, err)
	store := NewStore(b, 0, logger.Discard())
	require.NoError(t, store.Save(testSession("persisted", time.Now())))
	require.NoError(t, b.Close())

	b, err = OpenSQLiteBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	list := NewStore(b, 0, logger.Discard()).List()
	require.Len(t, list, 1)
	assert.Equal(t, "persisted", list[0].ID)
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(b.Path(StorageKey), []byte("[{"), 0600))

	store := NewStore(b, 0, logger.Discard())
	assert.Empty(t, store.List())

	// The next save overwrites the corrupt payload
	require.NoError(t, store.Save(testSession("fresh", time.Now())))
	assert.Len(t, store.List(), 1)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, b.Path(StorageKey), func() { changed <- struct{}{} }, logger.Discard())
	}()

	// Unrelated files are ignored; the watched one is reported. Retry the
	// write until the watcher is registered.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("x"), 0600))
	deadline := time.After(5 * time.Second)
	for seen := false; !seen; {
		require.NoError(t, b.Set(StorageKey, "[]"))
		select {
		case <-changed:
			seen = true
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no change notification received")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
