// Package entrypoint wires every component together and runs the HTTP
// server with graceful shutdown.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/audioshelf/internal/api"
	"github.com/mrlokans/audioshelf/internal/config"
	"github.com/mrlokans/audioshelf/internal/database"
	"github.com/mrlokans/audioshelf/internal/database/catalog"
	"github.com/mrlokans/audioshelf/internal/database/progress"
	app_http "github.com/mrlokans/audioshelf/internal/http"
	"github.com/mrlokans/audioshelf/internal/library"
	"github.com/mrlokans/audioshelf/internal/materializer"
	"github.com/mrlokans/audioshelf/internal/playback"
	"github.com/mrlokans/audioshelf/internal/scheduler"
	"github.com/mrlokans/audioshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down within
// the configured timeout, calling onShutdown first so background workers
// stop before the listener does.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run constructs every component from config and serves until shutdown.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Audioshelf v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	catalogRepo := catalog.NewRepository(db.DB)
	progressRepo := progress.NewRepository(db.DB)

	apiClient := api.NewClient(cfg.Server.BaseURL)

	mat, err := materializer.New(cfg.Library.RootDir, apiClient)
	if err != nil {
		log.Fatalf("Failed to initialize library root: %v", err)
	}

	service := library.NewService(apiClient, catalogRepo, mat)
	resolver := playback.NewResolver(progressRepo, apiClient, cfg.Server.UserID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The store must reflect on-disk reality before anything reads it,
	// even if the catalog server is unreachable right now.
	if err := service.ReconcileAll(ctx); err != nil {
		log.Printf("Startup reconcile reported errors: %v", err)
	}

	go func() {
		if err := service.Sync(ctx); err != nil {
			log.Printf("Initial catalog sync failed: %v", err)
		}
	}()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		})
		if err != nil {
			log.Fatalf("Failed to initialize download queue: %v", err)
		}
		taskClient.Register(tasks.NewDownloadBookQueue(service))
		go taskClient.Start(ctx)
	}

	var syncScheduler *scheduler.CatalogSyncScheduler
	if cfg.CatalogSync.Enabled {
		syncScheduler = scheduler.NewCatalogSyncScheduler(service, cfg.CatalogSync.Schedule)
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatalf("Failed to start catalog sync scheduler: %v", err)
		}
	}

	router := app_http.NewRouter(app_http.RouterConfig{
		Database:   db,
		Catalog:    catalogRepo,
		Progress:   progressRepo,
		Library:    service,
		Resolver:   resolver,
		TaskClient: taskClient,
		Version:    version,
	})

	Serve(router, cfg, func(shutdownCtx context.Context) {
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(shutdownCtx)
			if err := taskClient.Close(); err != nil {
				log.Printf("Failed to close download queue: %v", err)
			}
		}
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	})
}
