package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8388), cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultLibraryRoot, cfg.Library.RootDir)
	assert.Equal(t, "http://localhost:3000/api", cfg.Server.BaseURL)
	assert.Equal(t, uint(1), cfg.Server.UserID)
	assert.Equal(t, 5*time.Second, cfg.Playback.LocalSaveInterval)
	assert.Equal(t, 10, cfg.Playback.RemotePushEvery)
	assert.True(t, cfg.CatalogSync.Enabled)
	assert.Equal(t, "*/30 * * * *", cfg.CatalogSync.Schedule)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, 1, cfg.Tasks.Workers)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SERVER_BASE_URL", "http://192.168.1.8:3000/api")
	t.Setenv("SERVER_USER_ID", "7")
	t.Setenv("PLAYBACK_REMOTE_PUSH_EVERY", "5")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, "http://192.168.1.8:3000/api", cfg.Server.BaseURL)
	assert.Equal(t, uint(7), cfg.Server.UserID)
	assert.Equal(t, 5, cfg.Playback.RemotePushEvery)
}
