package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/audioshelf/internal/database"
	"github.com/mrlokans/audioshelf/internal/database/catalog"
	"github.com/mrlokans/audioshelf/internal/database/progress"
	"github.com/mrlokans/audioshelf/internal/library"
	"github.com/mrlokans/audioshelf/internal/playback"
	"github.com/mrlokans/audioshelf/internal/tasks"
)

// RouterConfig carries every dependency the router needs, keeping the
// constructor signature stable as controllers grow.
type RouterConfig struct {
	Database   *database.Database
	Catalog    *catalog.Repository
	Progress   *progress.Repository
	Library    *library.Service
	Resolver   *playback.Resolver
	TaskClient *tasks.Client
	Version    string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.Catalog, cfg.Library, cfg.TaskClient)
	progressController := NewProgressController(cfg.Progress, cfg.Resolver)

	router.GET("/health", health.Status)

	api := router.Group("/api")
	{
		api.POST("/sync", booksController.Sync)
		api.GET("/books", booksController.GetAllBooks)
		api.GET("/books/:id", booksController.GetBook)
		api.GET("/books/:id/files", booksController.ListFiles)
		api.POST("/books/:id/download", booksController.Download)
		api.DELETE("/books/:id", booksController.Remove)

		api.GET("/books/:id/progress", progressController.ForBook)
		api.GET("/books/:id/files/:fileId/resume", progressController.Resume)
		api.PUT("/books/:id/files/:fileId/progress", progressController.Set)
	}

	return router
}
