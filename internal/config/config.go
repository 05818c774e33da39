package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Library
		Server
		Playback
		CatalogSync
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Library struct {
		RootDir string // Directory materialized books are extracted under
	}
	Server struct {
		BaseURL string // Remote library API, e.g. "http://192.168.1.8:3000/api"
		UserID  uint   // Server-side user for progress endpoints
	}
	Playback struct {
		LocalSaveInterval time.Duration // Local progress checkpoint cadence
		RemotePushEvery   int           // Remote push once every N local ticks
	}
	CatalogSync struct {
		Enabled  bool
		Schedule string // Cron format: "*/30 * * * *" = every 30 minutes
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8388)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("library_root", DefaultLibraryRoot)
	v.SetDefault("server_base_url", "http://localhost:3000/api")
	v.SetDefault("server_user_id", 1)

	// Progress reconciliation defaults
	v.SetDefault("playback_local_save_interval", "5s")
	v.SetDefault("playback_remote_push_every", 10)

	// Catalog sync defaults
	v.SetDefault("catalog_sync_enabled", true)
	v.SetDefault("catalog_sync_schedule", "*/30 * * * *") // Every 30 minutes

	// Download queue defaults. A single worker keeps materializations
	// serialized; the archive extraction step must not run twice for the
	// same book.
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "15m")
	v.SetDefault("task_release_after", "30m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Library: Library{
			RootDir: v.GetString("LIBRARY_ROOT"),
		},
		Server: Server{
			BaseURL: v.GetString("SERVER_BASE_URL"),
			UserID:  v.GetUint("SERVER_USER_ID"),
		},
		Playback: Playback{
			LocalSaveInterval: v.GetDuration("PLAYBACK_LOCAL_SAVE_INTERVAL"),
			RemotePushEvery:   v.GetInt("PLAYBACK_REMOTE_PUSH_EVERY"),
		},
		CatalogSync: CatalogSync{
			Enabled:  v.GetBool("CATALOG_SYNC_ENABLED"),
			Schedule: v.GetString("CATALOG_SYNC_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
