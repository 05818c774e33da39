// Package catalog provides database operations for the mirrored audiobook
// catalog: book rows, their file rows and the downloaded/local-path state.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	books, err := repo.GetAllBooks()
package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/audioshelf/internal/entities"
)

// ErrBookNotFound is returned when an operation targets a book id that has
// no row in the local store.
var ErrBookNotFound = errors.New("audiobook not found in local catalog")

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertBooks replaces-or-inserts the given books by id as one transaction.
// Either every row becomes visible or none does; a sync that fails midway
// can simply be retried wholesale.
func (r *Repository) UpsertBooks(books []entities.Audiobook) error {
	if len(books) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&books).Error
	})
}

// UpsertFiles replaces-or-inserts file rows by id, atomically for the whole
// batch. Server metadata and the post-materialization local-path merge both
// go through here.
func (r *Repository) UpsertFiles(files []entities.AudioFile) error {
	if len(files) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&files).Error
	})
}

// MarkDownloaded flags a book as downloaded and records the directory its
// files were extracted to. Returns ErrBookNotFound if the book is unknown so
// callers cannot mistake a no-op for success.
func (r *Repository) MarkDownloaded(bookID uint, localRoot string) error {
	result := r.db.Model(&entities.Audiobook{}).
		Where("id = ?", bookID).
		Updates(map[string]interface{}{"downloaded": true, "local_path": localRoot})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("mark downloaded %d: %w", bookID, ErrBookNotFound)
	}
	return nil
}

// MarkNotDownloaded clears the downloaded flag and local root, used when a
// startup reconcile finds the materialized directory gone.
func (r *Repository) MarkNotDownloaded(bookID uint) error {
	return r.db.Model(&entities.Audiobook{}).
		Where("id = ?", bookID).
		Updates(map[string]interface{}{"downloaded": false, "local_path": nil}).Error
}

// GetBook retrieves a single book by id.
func (r *Repository) GetBook(bookID uint) (*entities.Audiobook, error) {
	var book entities.Audiobook
	err := r.db.First(&book, bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAllBooks returns every book in the local catalog ordered by title.
func (r *Repository) GetAllBooks() ([]entities.Audiobook, error) {
	var books []entities.Audiobook
	err := r.db.Order("title ASC").Find(&books).Error
	return books, err
}

// SearchBooks matches title, author or series against the query.
func (r *Repository) SearchBooks(query string) ([]entities.Audiobook, error) {
	var books []entities.Audiobook
	pattern := "%" + query + "%"
	err := r.db.
		Where("title LIKE ? OR author LIKE ? OR series LIKE ?", pattern, pattern, pattern).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

// ListFiles returns a book's file rows ordered by file name. The order is
// stable so list rendering and assertions are deterministic.
func (r *Repository) ListFiles(bookID uint) ([]entities.AudioFile, error) {
	var files []entities.AudioFile
	err := r.db.Where("book_id = ?", bookID).Order("file_name ASC").Find(&files).Error
	return files, err
}

// GetFile retrieves a single file row by id.
func (r *Repository) GetFile(fileID uint) (*entities.AudioFile, error) {
	var file entities.AudioFile
	err := r.db.First(&file, fileID).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// DeleteBook removes a book together with its file and progress rows in a
// single transaction. The explicit child deletes keep the cascade invariant
// even on connections where sqlite foreign keys are off.
func (r *Repository) DeleteBook(bookID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", bookID).Delete(&entities.PlaybackProgress{}).Error; err != nil {
			return fmt.Errorf("delete progress for book %d: %w", bookID, err)
		}
		if err := tx.Where("book_id = ?", bookID).Delete(&entities.AudioFile{}).Error; err != nil {
			return fmt.Errorf("delete files for book %d: %w", bookID, err)
		}
		if err := tx.Delete(&entities.Audiobook{}, bookID).Error; err != nil {
			return fmt.Errorf("delete book %d: %w", bookID, err)
		}
		return nil
	})
}
