package materializer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves a fixed byte payload per book id.
type fakeFetcher struct {
	payloads map[uint][]byte
	err      error

	// started is closed when DownloadBook is first entered and release,
	// when set, blocks it until closed. Used to hold a materialization
	// open while a second one is attempted.
	started     chan struct{}
	release     chan struct{}
	startedOnce sync.Once
}

func (f *fakeFetcher) DownloadBook(_ context.Context, bookID uint) (io.ReadCloser, error) {
	if f.started != nil {
		f.startedOnce.Do(func() { close(f.started) })
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	payload, ok := f.payloads[bookID]
	if !ok {
		return nil, errors.New("no payload for book")
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestMaterialize_ExtractsAndRemovesArchive(t *testing.T) {
	root := t.TempDir()
	archive := buildZip(t, map[string]string{
		"dune/chapter_01.mp3": "audio one",
		"dune/chapter_02.mp3": "audio two",
		"dune/cover.jpg":      "image",
	})
	m, err := New(root, &fakeFetcher{payloads: map[uint][]byte{1: archive}})
	require.NoError(t, err)

	result, err := m.Materialize(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "1"), result.Root)
	require.Len(t, result.Files, 3)
	assert.Equal(t, filepath.Join(root, "1", "dune", "chapter_01.mp3"), result.Files[0])
	assert.Equal(t, filepath.Join(root, "1", "dune", "chapter_02.mp3"), result.Files[1])
	assert.Equal(t, filepath.Join(root, "1", "dune", "cover.jpg"), result.Files[2])

	content, err := os.ReadFile(result.Files[0])
	require.NoError(t, err)
	assert.Equal(t, "audio one", string(content))

	_, err = os.Stat(filepath.Join(root, "1.zip"))
	assert.True(t, os.IsNotExist(err), "archive should be removed after successful extraction")

	assert.True(t, m.Materialized(1))
}

func TestMaterialize_CorruptArchiveKeptForDiagnosis(t *testing.T) {
	root := t.TempDir()
	m, err := New(root, &fakeFetcher{payloads: map[uint][]byte{1: []byte("definitely not a zip")}})
	require.NoError(t, err)

	_, err = m.Materialize(context.Background(), 1)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(root, "1.zip"))
	assert.NoError(t, statErr, "archive should remain on extraction failure")
}

func TestMaterialize_FetchErrorLeavesNoArchive(t *testing.T) {
	root := t.TempDir()
	m, err := New(root, &fakeFetcher{err: errors.New("connection refused")})
	require.NoError(t, err)

	_, err = m.Materialize(context.Background(), 1)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(root, "1.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMaterialize_RejectsConcurrentRequest(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{
		payloads: map[uint][]byte{1: buildZip(t, map[string]string{"a.mp3": "x"})},
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	m, err := New(root, fetcher)
	require.NoError(t, err)

	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Materialize(context.Background(), 1)
		firstErr <- err
	}()

	// Wait until the first call is parked inside the fetcher, holding the
	// in-flight slot for book 1.
	<-fetcher.started

	_, secondErr := m.Materialize(context.Background(), 1)
	assert.ErrorIs(t, secondErr, ErrDownloadInFlight)

	close(fetcher.release)
	require.NoError(t, <-firstErr)

	// A finished flight releases the slot.
	_, err = m.Materialize(context.Background(), 1)
	require.NoError(t, err)
}

func TestMaterialize_RejectsZipSlipEntry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../escape.mp3")
	require.NoError(t, err)
	_, err = w.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	root := t.TempDir()
	m, err := New(root, &fakeFetcher{payloads: map[uint][]byte{1: buf.Bytes()}})
	require.NoError(t, err)

	_, err = m.Materialize(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")

	_, statErr := os.Stat(filepath.Join(root, "escape.mp3"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnumerate_SortedRecursive(t *testing.T) {
	root := t.TempDir()
	m, err := New(root, &fakeFetcher{})
	require.NoError(t, err)

	bookDir := m.BookDir(3)
	require.NoError(t, os.MkdirAll(filepath.Join(bookDir, "disc2"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "z.mp3"), []byte("z"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "a.mp3"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "disc2", "b.mp3"), []byte("b"), 0644))

	files, err := m.Enumerate(3)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(bookDir, "a.mp3"), files[0])
	assert.Equal(t, filepath.Join(bookDir, "disc2", "b.mp3"), files[1])
	assert.Equal(t, filepath.Join(bookDir, "z.mp3"), files[2])
}

func TestMaterialized(t *testing.T) {
	root := t.TempDir()
	m, err := New(root, &fakeFetcher{})
	require.NoError(t, err)

	assert.False(t, m.Materialized(1), "missing directory")

	require.NoError(t, os.MkdirAll(m.BookDir(1), 0755))
	assert.False(t, m.Materialized(1), "empty directory")

	require.NoError(t, os.WriteFile(filepath.Join(m.BookDir(1), "a.mp3"), []byte("a"), 0644))
	assert.True(t, m.Materialized(1))
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	m, err := New(root, &fakeFetcher{})
	require.NoError(t, err)

	err = m.Remove(9)
	assert.ErrorIs(t, err, ErrNotMaterialized)

	require.NoError(t, os.MkdirAll(m.BookDir(9), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(m.BookDir(9), "a.mp3"), []byte("a"), 0644))

	require.NoError(t, m.Remove(9))
	_, statErr := os.Stat(m.BookDir(9))
	assert.True(t, os.IsNotExist(statErr))
}
