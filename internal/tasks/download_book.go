package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/audioshelf/internal/library"
)

// DownloadBookTask materializes one book's archive in the background.
type DownloadBookTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for download tasks.
func (t DownloadBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "download_book",
		MaxAttempts: 3,
		Backoff:     1 * time.Minute,
		Timeout:     15 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DownloadBookProcessor creates a processor function for DownloadBookTask.
func DownloadBookProcessor(svc *library.Service) backlite.QueueProcessor[DownloadBookTask] {
	return func(ctx context.Context, task DownloadBookTask) error {
		if svc == nil {
			return fmt.Errorf("library service not configured")
		}

		if err := svc.Download(ctx, task.BookID); err != nil {
			return fmt.Errorf("download book %d: %w", task.BookID, err)
		}

		log.Printf("[TASK] Book %d downloaded and materialized", task.BookID)
		return nil
	}
}

// NewDownloadBookQueue creates a backlite queue for download tasks.
func NewDownloadBookQueue(svc *library.Service) backlite.Queue {
	return backlite.NewQueue(DownloadBookProcessor(svc))
}
