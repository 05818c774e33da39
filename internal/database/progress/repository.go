// Package progress provides database operations for the per-file playback
// progress ledger. Exactly one row exists per (book, file) pair; every write
// is an upsert that replaces position and timestamp.
package progress

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/audioshelf/internal/entities"
)

// Entry is one (book, file, position) triple for batch writes.
type Entry struct {
	BookID     uint
	FileID     uint
	ProgressMs int64
}

// FileProgress is a progress row joined with its file's name and local path,
// used to render per-book resume state.
type FileProgress struct {
	FileID     uint    `json:"file_id"`
	ProgressMs int64   `json:"progress_ms"`
	FileName   string  `json:"file_name"`
	LocalPath  *string `json:"local_path"`
}

// Repository handles all progress ledger operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored position for a (book, file) pair. A pair that was
// never played reads as 0; that is not an error.
func (r *Repository) Get(bookID, fileID uint) (int64, error) {
	var row entities.PlaybackProgress
	err := r.db.Where("book_id = ? AND file_id = ?", bookID, fileID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.ProgressMs, nil
}

// Set upserts the position for a (book, file) pair.
func (r *Repository) Set(bookID, fileID uint, progressMs int64) error {
	row := entities.PlaybackProgress{
		BookID:      bookID,
		FileID:      fileID,
		ProgressMs:  progressMs,
		LastUpdated: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}, {Name: "file_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"progress_ms", "last_updated"}),
	}).Create(&row).Error
}

// SetBatch upserts a group of positions atomically, so a periodic flush of
// several in-flight files cannot interleave with a concurrent single write.
func (r *Repository) SetBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]entities.PlaybackProgress, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entities.PlaybackProgress{
			BookID:      e.BookID,
			FileID:      e.FileID,
			ProgressMs:  e.ProgressMs,
			LastUpdated: now,
		})
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}, {Name: "file_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"progress_ms", "last_updated"}),
		}).Create(&rows).Error
	})
}

// ForBook returns every progress row of a book joined with file name and
// local path, ordered by file name.
func (r *Repository) ForBook(bookID uint) ([]FileProgress, error) {
	var rows []FileProgress
	err := r.db.Table("progress").
		Select("progress.file_id, progress.progress_ms, files.file_name, files.local_path").
		Joins("JOIN files ON files.id = progress.file_id").
		Where("files.book_id = ?", bookID).
		Order("files.file_name ASC").
		Scan(&rows).Error
	return rows, err
}
