package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"PORTAL_API_BASE_URL", "PORTAL_PROFILE_PATH", "PORTAL_STORAGE", "PORTAL_DATABASE_FILE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "PORT", "HTTP_TIMEOUT", "SHUTDOWN_GRACE_PERIOD",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	require.Equal(t, "/profile/", cfg.ProfilePath)
	require.Equal(t, StorageSQLite, cfg.Storage)
	require.Equal(t, "portal.db", cfg.DatabaseFile)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORTAL_API_BASE_URL", "https://api.example.com")
	t.Setenv("PORTAL_PROFILE_PATH", "/users/{id}/")
	t.Setenv("PORTAL_STORAGE", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PORT", "4200")
	t.Setenv("HTTP_TIMEOUT", "30")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "2m")

	cfg := LoadConfig()
	require.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	require.Equal(t, "/users/{id}/", cfg.ProfilePath)
	require.Equal(t, StorageRedis, cfg.Storage)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, 4200, cfg.Port)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 2*time.Minute, cfg.ShutdownGracePeriod)
}

func TestLoadConfigIgnoresGarbage(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg := LoadConfig()
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
}

func TestValidate(t *testing.T) {
	cfg := Config{APIBaseURL: "http://localhost:8000", Storage: "postgres"}
	require.ErrorContains(t, cfg.Validate(), "PORTAL_STORAGE")

	cfg = Config{Storage: StorageMemory}
	require.ErrorContains(t, cfg.Validate(), "PORTAL_API_BASE_URL")
}
