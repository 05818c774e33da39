package library

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/audioshelf/internal/api"
	"github.com/mrlokans/audioshelf/internal/database/catalog"
	"github.com/mrlokans/audioshelf/internal/entities"
	"github.com/mrlokans/audioshelf/internal/materializer"
)

type fakeClient struct {
	books    []entities.Audiobook
	metadata map[uint][]entities.AudioFile
	listErr  error
	metaErr  error
}

func (f *fakeClient) ListBooks(_ context.Context) (*api.BooksResponse, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &api.BooksResponse{Books: f.books, Count: len(f.books)}, nil
}

func (f *fakeClient) FileMetadata(_ context.Context, bookID uint) ([]entities.AudioFile, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.metadata[bookID], nil
}

type fakeFetcher struct {
	payloads map[uint][]byte
	err      error
}

func (f *fakeFetcher) DownloadBook(_ context.Context, bookID uint) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.payloads[bookID])), nil
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

func setupService(t *testing.T, client *fakeClient, fetcher *fakeFetcher) (*Service, *catalog.Repository, *materializer.Materializer) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "library.db")
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Audiobook{}, &entities.AudioFile{}, &entities.PlaybackProgress{}))

	repo := catalog.NewRepository(db)
	mat, err := materializer.New(filepath.Join(t.TempDir(), "library"), fetcher)
	require.NoError(t, err)

	return NewService(client, repo, mat), repo, mat
}

func strPtr(s string) *string {
	return &s
}

func TestDownload_MaterializesAndCorrelates(t *testing.T) {
	client := &fakeClient{
		metadata: map[uint][]entities.AudioFile{
			1: {
				{ID: 11, FileName: "a.mp3", FilePath: strPtr("dune/a.mp3")},
				{ID: 12, FileName: "b.mp3", FilePath: strPtr("dune/b.mp3")},
			},
		},
	}
	fetcher := &fakeFetcher{payloads: map[uint][]byte{
		1: buildZip(t, map[string]string{
			"dune/a.mp3":     "audio a",
			"dune/b.mp3":     "audio b",
			"dune/cover.jpg": "artwork",
		}),
	}}
	svc, repo, mat := setupService(t, client, fetcher)
	require.NoError(t, repo.UpsertBooks([]entities.Audiobook{{ID: 1, Title: "Dune", Author: "Herbert"}}))

	require.NoError(t, svc.Download(context.Background(), 1))

	book, err := repo.GetBook(1)
	require.NoError(t, err)
	assert.True(t, book.Downloaded)
	require.NotNil(t, book.LocalPath)
	assert.Equal(t, mat.BookDir(1), *book.LocalPath)

	files, err := repo.ListFiles(1)
	require.NoError(t, err)
	require.Len(t, files, 2)
	// Both metadata rows matched an extracted file; the cover matched nothing
	// and produced no row.
	require.NotNil(t, files[0].LocalPath)
	assert.Equal(t, filepath.Join(mat.BookDir(1), "dune", "a.mp3"), *files[0].LocalPath)
	require.NotNil(t, files[1].LocalPath)
	assert.Equal(t, filepath.Join(mat.BookDir(1), "dune", "b.mp3"), *files[1].LocalPath)
}

func TestDownload_UnmatchedMetadataKeepsNilLocalPath(t *testing.T) {
	client := &fakeClient{
		metadata: map[uint][]entities.AudioFile{
			1: {
				{ID: 11, FileName: "a.mp3", FilePath: strPtr("dune/a.mp3")},
				{ID: 12, FileName: "missing.mp3", FilePath: strPtr("dune/missing.mp3")},
			},
		},
	}
	fetcher := &fakeFetcher{payloads: map[uint][]byte{
		1: buildZip(t, map[string]string{"dune/a.mp3": "audio a"}),
	}}
	svc, repo, _ := setupService(t, client, fetcher)
	require.NoError(t, repo.UpsertBooks([]entities.Audiobook{{ID: 1, Title: "Dune", Author: "Herbert"}}))

	require.NoError(t, svc.Download(context.Background(), 1))

	files, err := repo.ListFiles(1)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.NotNil(t, files[0].LocalPath)
	assert.Nil(t, files[1].LocalPath)

	// A partial match still counts as downloaded.
	book, err := repo.GetBook(1)
	require.NoError(t, err)
	assert.True(t, book.Downloaded)
}

func TestDownload_ExtractionFailureLeavesBookNotDownloaded(t *testing.T) {
	client := &fakeClient{
		metadata: map[uint][]entities.AudioFile{
			1: {{ID: 11, FileName: "a.mp3", FilePath: strPtr("dune/a.mp3")}},
		},
	}
	fetcher := &fakeFetcher{payloads: map[uint][]byte{1: []byte("not a zip")}}
	svc, repo, _ := setupService(t, client, fetcher)
	require.NoError(t, repo.UpsertBooks([]entities.Audiobook{{ID: 1, Title: "Dune", Author: "Herbert"}}))

	err := svc.Download(context.Background(), 1)
	require.Error(t, err)

	book, getErr := repo.GetBook(1)
	require.NoError(t, getErr)
	assert.False(t, book.Downloaded)

	files, listErr := repo.ListFiles(1)
	require.NoError(t, listErr)
	assert.Empty(t, files)
}

func TestSync_MirrorsCatalogAndReconcilesDiskState(t *testing.T) {
	client := &fakeClient{
		books: []entities.Audiobook{
			{ID: 1, Title: "Dune", Author: "Herbert"},
			{ID: 2, Title: "The Hobbit", Author: "Tolkien"},
		},
		metadata: map[uint][]entities.AudioFile{
			1: {{ID: 11, FileName: "a.mp3", FilePath: strPtr("dune/a.mp3")}},
		},
	}
	fetcher := &fakeFetcher{payloads: map[uint][]byte{
		1: buildZip(t, map[string]string{"dune/a.mp3": "audio a"}),
	}}
	svc, repo, _ := setupService(t, client, fetcher)

	// First sync mirrors the catalog; nothing is on disk yet.
	require.NoError(t, svc.Sync(context.Background()))

	books, err := repo.GetAllBooks()
	require.NoError(t, err)
	require.Len(t, books, 2)
	for _, book := range books {
		assert.False(t, book.Downloaded)
	}

	// Materialize book 1, then sync again: the wholesale upsert wipes the
	// flag and the reconcile step restores it from disk.
	require.NoError(t, svc.Download(context.Background(), 1))
	require.NoError(t, svc.Sync(context.Background()))

	book, err := repo.GetBook(1)
	require.NoError(t, err)
	assert.True(t, book.Downloaded)

	book, err = repo.GetBook(2)
	require.NoError(t, err)
	assert.False(t, book.Downloaded)
}

func TestSync_ListFailureLeavesStoreUntouched(t *testing.T) {
	client := &fakeClient{listErr: errors.New("server unreachable")}
	svc, repo, _ := setupService(t, client, &fakeFetcher{})
	require.NoError(t, repo.UpsertBooks([]entities.Audiobook{{ID: 1, Title: "Dune", Author: "Herbert"}}))

	err := svc.Sync(context.Background())
	require.Error(t, err)

	books, listErr := repo.GetAllBooks()
	require.NoError(t, listErr)
	assert.Len(t, books, 1)
}

func TestReconcileAll_ClearsDownloadedWhenDirectoryGone(t *testing.T) {
	client := &fakeClient{
		metadata: map[uint][]entities.AudioFile{
			1: {{ID: 11, FileName: "a.mp3", FilePath: strPtr("dune/a.mp3")}},
		},
	}
	fetcher := &fakeFetcher{payloads: map[uint][]byte{
		1: buildZip(t, map[string]string{"dune/a.mp3": "audio a"}),
	}}
	svc, repo, mat := setupService(t, client, fetcher)
	require.NoError(t, repo.UpsertBooks([]entities.Audiobook{{ID: 1, Title: "Dune", Author: "Herbert"}}))
	require.NoError(t, svc.Download(context.Background(), 1))

	// The directory disappears behind the store's back.
	require.NoError(t, os.RemoveAll(mat.BookDir(1)))

	require.NoError(t, svc.ReconcileAll(context.Background()))

	book, err := repo.GetBook(1)
	require.NoError(t, err)
	assert.False(t, book.Downloaded)
	assert.Nil(t, book.LocalPath)
}

func TestReconcileAll_ArtworkOnlyDirectoryIsNotDownloaded(t *testing.T) {
	client := &fakeClient{}
	svc, repo, mat := setupService(t, client, &fakeFetcher{})
	require.NoError(t, repo.UpsertBooks([]entities.Audiobook{{ID: 1, Title: "Dune", Author: "Herbert"}}))

	// Only a cover survived; no playable audio means the book is not usable.
	require.NoError(t, os.MkdirAll(mat.BookDir(1), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(mat.BookDir(1), "cover.jpg"), []byte("artwork"), 0644))

	require.NoError(t, svc.ReconcileAll(context.Background()))

	book, err := repo.GetBook(1)
	require.NoError(t, err)
	assert.False(t, book.Downloaded)
}

func TestRemove_DeletesDirectoryAndRows(t *testing.T) {
	client := &fakeClient{
		metadata: map[uint][]entities.AudioFile{
			1: {{ID: 11, FileName: "a.mp3", FilePath: strPtr("dune/a.mp3")}},
		},
	}
	fetcher := &fakeFetcher{payloads: map[uint][]byte{
		1: buildZip(t, map[string]string{"dune/a.mp3": "audio a"}),
	}}
	svc, repo, mat := setupService(t, client, fetcher)
	require.NoError(t, repo.UpsertBooks([]entities.Audiobook{{ID: 1, Title: "Dune", Author: "Herbert"}}))
	require.NoError(t, svc.Download(context.Background(), 1))

	require.NoError(t, svc.Remove(1))

	_, statErr := os.Stat(mat.BookDir(1))
	assert.True(t, os.IsNotExist(statErr))

	_, err := repo.GetBook(1)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
}

func TestRemove_NotMaterializedKeepsRows(t *testing.T) {
	svc, repo, _ := setupService(t, &fakeClient{}, &fakeFetcher{})
	require.NoError(t, repo.UpsertBooks([]entities.Audiobook{{ID: 1, Title: "Dune", Author: "Herbert"}}))

	err := svc.Remove(1)
	assert.ErrorIs(t, err, materializer.ErrNotMaterialized)

	book, getErr := repo.GetBook(1)
	require.NoError(t, getErr)
	assert.Equal(t, "Dune", book.Title)
}

func TestCorrelate(t *testing.T) {
	files := []entities.AudioFile{
		{ID: 1, FilePath: strPtr("dune/a.mp3")},
		{ID: 2, FilePath: strPtr("dune/missing.mp3")},
		{ID: 3, FilePath: nil},
		{ID: 4, FilePath: strPtr("")},
	}
	paths := []string{
		"/library/1/dune/a.mp3",
		"/library/1/dune/cover.jpg",
	}

	matched := correlate(files, paths)

	assert.Equal(t, 1, matched)
	require.NotNil(t, files[0].LocalPath)
	assert.Equal(t, "/library/1/dune/a.mp3", *files[0].LocalPath)
	assert.Nil(t, files[1].LocalPath)
	assert.Nil(t, files[2].LocalPath)
	assert.Nil(t, files[3].LocalPath)
}
