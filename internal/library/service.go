// Package library orchestrates the local audiobook collection: mirroring the
// remote catalog into the store, materializing book archives on demand,
// correlating extracted files against server metadata and removing books as
// one logical unit of filesystem content plus store rows.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/audioshelf/internal/api"
	"github.com/mrlokans/audioshelf/internal/database/catalog"
	"github.com/mrlokans/audioshelf/internal/entities"
	"github.com/mrlokans/audioshelf/internal/materializer"
	"github.com/mrlokans/audioshelf/internal/probe"
)

// CatalogClient is the slice of the remote API the library service needs.
type CatalogClient interface {
	ListBooks(ctx context.Context) (*api.BooksResponse, error)
	FileMetadata(ctx context.Context, bookID uint) ([]entities.AudioFile, error)
}

// Service coordinates catalog sync, downloads and removal.
type Service struct {
	client  CatalogClient
	catalog *catalog.Repository
	mat     *materializer.Materializer
}

// NewService creates the library service.
func NewService(client CatalogClient, catalogRepo *catalog.Repository, mat *materializer.Materializer) *Service {
	return &Service{
		client:  client,
		catalog: catalogRepo,
		mat:     mat,
	}
}

// Sync pulls the remote catalog, mirrors it into the store and then
// reconciles every book's downloaded state against what is actually on disk.
// The reconcile step is what keeps "downloaded" truthful across restarts and
// reinstalls: the catalog upsert wipes the flag, and only books whose
// directory still holds files get it back.
func (s *Service) Sync(ctx context.Context) error {
	listing, err := s.client.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}
	books := listing.Books

	if err := s.catalog.UpsertBooks(books); err != nil {
		return fmt.Errorf("mirror catalog: %w", err)
	}

	var reconcileErrs []error
	for _, book := range books {
		if err := s.reconcileBook(ctx, book.ID); err != nil {
			log.Printf("Reconcile book %d failed: %v", book.ID, err)
			reconcileErrs = append(reconcileErrs, fmt.Errorf("book %d: %w", book.ID, err))
		}
	}

	log.Printf("Catalog sync complete: %d books", len(books))
	return errors.Join(reconcileErrs...)
}

// ReconcileAll aligns every stored book's downloaded state with the
// filesystem without touching the network (beyond re-fetching metadata for
// books whose file rows are missing). Run at startup so the store reflects
// on-disk reality even when the process died between sessions.
func (s *Service) ReconcileAll(ctx context.Context) error {
	books, err := s.catalog.GetAllBooks()
	if err != nil {
		return fmt.Errorf("list stored books: %w", err)
	}

	var reconcileErrs []error
	for _, book := range books {
		if err := s.reconcileBook(ctx, book.ID); err != nil {
			log.Printf("Reconcile book %d failed: %v", book.ID, err)
			reconcileErrs = append(reconcileErrs, fmt.Errorf("book %d: %w", book.ID, err))
		}
	}
	return errors.Join(reconcileErrs...)
}

// Download fetches the server's file metadata for a book, materializes its
// archive and merges the resulting local paths back into the store. The
// downloaded flag is only set after every step before it has succeeded.
func (s *Service) Download(ctx context.Context, bookID uint) error {
	files, err := s.client.FileMetadata(ctx, bookID)
	if err != nil {
		return fmt.Errorf("fetch file metadata for book %d: %w", bookID, err)
	}

	result, err := s.mat.Materialize(ctx, bookID)
	if err != nil {
		return err
	}

	matched := correlate(files, result.Files)
	for i := range files {
		files[i].BookID = bookID
		probe.Fill(&files[i])
	}

	if err := s.catalog.UpsertFiles(files); err != nil {
		return fmt.Errorf("store file rows for book %d: %w", bookID, err)
	}

	if err := s.catalog.MarkDownloaded(bookID, result.Root); err != nil {
		return err
	}

	log.Printf("Downloaded book %d: %d files extracted, %d matched to metadata", bookID, len(result.Files), matched)
	return nil
}

// Remove deletes a book's materialized directory and then its store rows.
// Filesystem deletion goes first: if it fails the rows stay intact and the
// book still shows as downloaded, so the user can retry instead of being
// left with untracked files on disk.
func (s *Service) Remove(bookID uint) error {
	if err := s.mat.Remove(bookID); err != nil {
		return err
	}
	if err := s.catalog.DeleteBook(bookID); err != nil {
		return fmt.Errorf("delete store rows for book %d: %w", bookID, err)
	}
	return nil
}

// reconcileBook aligns one book's store state with its on-disk state.
func (s *Service) reconcileBook(ctx context.Context, bookID uint) error {
	if !s.mat.Materialized(bookID) {
		return s.catalog.MarkNotDownloaded(bookID)
	}

	files, err := s.catalog.ListFiles(bookID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		// Fresh store with files already on disk (e.g. restored backup):
		// the metadata has to come from the server again.
		files, err = s.client.FileMetadata(ctx, bookID)
		if err != nil {
			return fmt.Errorf("fetch file metadata: %w", err)
		}
	}

	paths, err := s.mat.Enumerate(bookID)
	if err != nil {
		return err
	}
	if !containsPlayable(paths) {
		// Leftover artwork or manifests alone do not make a book playable.
		return s.catalog.MarkNotDownloaded(bookID)
	}

	correlate(files, paths)
	for i := range files {
		files[i].BookID = bookID
		probe.Fill(&files[i])
	}

	if err := s.catalog.UpsertFiles(files); err != nil {
		return err
	}
	return s.catalog.MarkDownloaded(bookID, s.mat.BookDir(bookID))
}

func containsPlayable(paths []string) bool {
	for _, path := range paths {
		if probe.IsAudioFile(path) {
			return true
		}
	}
	return false
}

// correlate assigns each file the first materialized path whose tail equals
// the file's server-relative path. Files that match nothing keep a nil local
// path: archives may contain extraneous entries (artwork, manifests) and the
// server may list files the archive does not carry, neither of which fails
// the book. Returns how many files were matched.
func correlate(files []entities.AudioFile, paths []string) int {
	matched := 0
	for i := range files {
		fragment := files[i].FilePath
		if fragment == nil || *fragment == "" {
			continue
		}
		for _, path := range paths {
			if strings.HasSuffix(path, *fragment) {
				localPath := path
				files[i].LocalPath = &localPath
				matched++
				break
			}
		}
	}
	return matched
}
