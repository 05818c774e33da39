// Package database owns the local sqlite store lifecycle. The store is an
// explicitly constructed object: callers open it once at startup with
// NewDatabase, inject it where needed and Close it on shutdown. There is no
// ambient global handle and no lazy re-initialization.
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/audioshelf/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (creating if necessary) the catalog database at dbPath
// and migrates the schema. Foreign keys must be enabled per connection for
// sqlite to honour the cascade deletes the schema declares; WAL keeps the
// frequent progress writes from blocking readers.
func NewDatabase(dbPath string) (*Database, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Audiobook{},
		&entities.AudioFile{},
		&entities.PlaybackProgress{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Reset drops all tables and re-runs the migration. Destructive; used by the
// maintenance CLI and tests.
func (d *Database) Reset() error {
	err := d.DB.Migrator().DropTable(
		&entities.PlaybackProgress{},
		&entities.AudioFile{},
		&entities.Audiobook{},
	)
	if err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return d.DB.AutoMigrate(
		&entities.Audiobook{},
		&entities.AudioFile{},
		&entities.PlaybackProgress{},
	)
}
