package devapi

import (
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/examprep/pkg/jwtx"
)

// Config is the environment driven configuration of cmd/devapi.
type Config struct {
	Issuer        string        // Issuer claim for minted tokens (default: examprep-devapi)
	AccessTTL     time.Duration // Access token lifetime (default: 15m)
	RefreshTTL    time.Duration // Refresh token lifetime (default: 24h)
	RotateRefresh bool          // Issue a new refresh token on every refresh (default: false)
	PepperFile    string        // Path to the password pepper file (default: ./devapi.pepper)
	Env           string        // Environment (dev, staging, prod) (default: dev)
	LogLevel      string        // Log level (debug, info, warn, error) (default: info)
	LogFormat     string        // Log format (json, text) (default: json)
	Port          int           // HTTP server port (default: 8000)

	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer:              getEnvOrDefault("DEVAPI_ISSUER", "examprep-devapi"),
		AccessTTL:           getEnvDurationOrDefault("DEVAPI_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:          getEnvDurationOrDefault("DEVAPI_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		RotateRefresh:       getEnvBoolOrDefault("DEVAPI_ROTATE_REFRESH", false),
		PepperFile:          getEnvOrDefault("DEVAPI_PEPPER_FILE", "devapi.pepper"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8000),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
