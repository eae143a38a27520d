package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_CreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "aska.log")

	w, err := NewRotatingWriter(path, 10, 0, false)
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRotatingWriter_AppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aska.log")

	w, err := NewRotatingWriter(path, 10, 0, false)
	require.NoError(t, err)
	_, err = w.Write([]byte("first entry\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Reopening must append, not truncate.
	w, err = NewRotatingWriter(path, 10, 0, false)
	require.NoError(t, err)
	_, err = w.Write([]byte("second entry\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "first entry")
	assert.Contains(t, string(content), "second entry")
}

func TestRotatingWriter_RotatesPastSizeBound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aska.log")

	// maxSizeMB of 0 means any second write rotates.
	w, err := NewRotatingWriter(path, 0, 0, false)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("entry before rotation\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("entry after rotation\n"))
	require.NoError(t, err)

	rotated, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.NotEmpty(t, rotated)

	// The rotated copy holds the old entry, the active file the new one.
	old, err := os.ReadFile(rotated[0])
	require.NoError(t, err)
	assert.Contains(t, string(old), "entry before rotation")

	active, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(active), "entry after rotation")
	assert.NotContains(t, string(active), "entry before rotation")
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aska.log")

	w, err := NewRotatingWriter(path, 10, 0, false)
	require.NoError(t, err)
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := w.Write([]byte(fmt.Sprintf("writer %d entry %d\n", n, j)))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "writer 0 entry 0")
	assert.Contains(t, string(content), "writer 7 entry 19")
}

func TestGzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aska.log.20260101-000000")
	require.NoError(t, os.WriteFile(path, []byte("rotated content"), 0644))

	require.NoError(t, gzipFile(path))

	_, err := os.Stat(path + ".gz")
	assert.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "original should be removed after compression")
}

func TestRotatingWriter_PrunesOldCopies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aska.log")

	stale := path + ".20200101-120000"
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0644))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := path + "." + time.Now().Format("20060102-150405")
	require.NoError(t, os.WriteFile(fresh, []byte("fresh"), 0644))

	w, err := NewRotatingWriter(path, 10, 7, false)
	require.NoError(t, err)
	defer w.Close()

	w.prune()

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "copy past maxAge should be pruned")

	_, err = os.Stat(fresh)
	assert.NoError(t, err, "recent copy should survive")
}
