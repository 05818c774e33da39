// Package materializer turns a remote book archive into a local, playable
// file tree. It owns the on-disk layout: one directory per book id under the
// library root, with the downloaded archive held at <root>/<id>.zip until
// extraction succeeds.
package materializer

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrDownloadInFlight is returned when a materialization is requested for a
// book that already has one running. Concurrent extraction into the same
// directory risks a corrupt file set, so the second caller is rejected.
var ErrDownloadInFlight = errors.New("materialization already in flight for this book")

// ErrNotMaterialized is returned by Remove when the book has no local
// directory to delete.
var ErrNotMaterialized = errors.New("book has no materialized directory")

// ArchiveFetcher streams a book's archive from the remote service.
type ArchiveFetcher interface {
	DownloadBook(ctx context.Context, bookID uint) (io.ReadCloser, error)
}

// Result describes a completed materialization.
type Result struct {
	Root  string   // directory the archive was extracted into
	Files []string // absolute paths of every extracted file, sorted, no duplicates
}

// Materializer downloads and extracts book archives under a root directory.
type Materializer struct {
	root    string
	fetcher ArchiveFetcher

	mu       sync.Mutex
	inFlight map[uint]struct{}
}

// New creates a materializer rooted at dir, creating the root if needed.
func New(dir string, fetcher ArchiveFetcher) (*Materializer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}
	return &Materializer{
		root:     dir,
		fetcher:  fetcher,
		inFlight: make(map[uint]struct{}),
	}, nil
}

// Root returns the library root directory.
func (m *Materializer) Root() string {
	return m.root
}

// BookDir returns the directory a book's files live in once materialized.
func (m *Materializer) BookDir(bookID uint) string {
	return filepath.Join(m.root, fmt.Sprintf("%d", bookID))
}

// Materialize downloads the book's archive, extracts it into the book
// directory and returns the resulting file tree. The archive is removed only
// after extraction succeeds; on extraction failure the archive and any
// partially extracted files are left in place for diagnosis.
func (m *Materializer) Materialize(ctx context.Context, bookID uint) (*Result, error) {
	if !m.acquire(bookID) {
		return nil, fmt.Errorf("materialize book %d: %w", bookID, ErrDownloadInFlight)
	}
	defer m.release(bookID)

	destDir := m.BookDir(bookID)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create book directory: %w", err)
	}

	archivePath := filepath.Join(m.root, fmt.Sprintf("%d.zip", bookID))
	if err := m.download(ctx, bookID, archivePath); err != nil {
		return nil, err
	}

	if err := extractArchive(archivePath, destDir); err != nil {
		return nil, fmt.Errorf("extract archive for book %d: %w", bookID, err)
	}

	if err := os.Remove(archivePath); err != nil {
		return nil, fmt.Errorf("remove archive after extraction: %w", err)
	}

	files, err := m.Enumerate(bookID)
	if err != nil {
		return nil, err
	}

	return &Result{Root: destDir, Files: files}, nil
}

// Enumerate walks a book's directory recursively and returns the sorted,
// duplicate-free list of absolute file paths. Directories are traversed but
// not included.
func (m *Materializer) Enumerate(bookID uint) ([]string, error) {
	destDir := m.BookDir(bookID)
	var files []string
	err := filepath.WalkDir(destDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate book %d: %w", bookID, err)
	}
	sort.Strings(files)
	return files, nil
}

// Materialized reports whether a book has a non-empty local directory.
func (m *Materializer) Materialized(bookID uint) bool {
	entries, err := os.ReadDir(m.BookDir(bookID))
	return err == nil && len(entries) > 0
}

// Remove deletes a book's materialized directory tree. Asking to remove a
// book that was never materialized is an error, surfaced so the caller does
// not silently drop its store rows for files that were never there.
func (m *Materializer) Remove(bookID uint) error {
	destDir := m.BookDir(bookID)
	if _, err := os.Stat(destDir); os.IsNotExist(err) {
		return fmt.Errorf("remove book %d: %w", bookID, ErrNotMaterialized)
	}
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("remove book %d directory: %w", bookID, err)
	}
	return nil
}

func (m *Materializer) acquire(bookID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, running := m.inFlight[bookID]; running {
		return false
	}
	m.inFlight[bookID] = struct{}{}
	return true
}

func (m *Materializer) release(bookID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, bookID)
}

func (m *Materializer) download(ctx context.Context, bookID uint, archivePath string) error {
	body, err := m.fetcher.DownloadBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("fetch archive for book %d: %w", bookID, err)
	}
	defer body.Close()

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(archivePath)
		return fmt.Errorf("download archive for book %d: %w", bookID, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(archivePath)
		return fmt.Errorf("flush archive file: %w", err)
	}

	return nil
}

func extractArchive(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if err := extractEntry(entry, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.Clean(entry.Name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes destination directory", entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create directory for %q: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %q: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %q: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %q: %w", target, err)
	}
	return nil
}
