package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
)

// Storage backends for the durable "remember me" area.
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	APIBaseURL   string // REST backend root (default: http://localhost:8000)
	ProfilePath  string // Current user endpoint, may contain {id} (default: /profile/)
	Storage      string // Durable token area (sqlite, redis, memory) (default: sqlite)
	DatabaseFile string // SQLite file for the durable area (default: ./portal.db)
	RedisAddr    string // Redis address when Storage is redis (default: localhost:6379)
	RedisPass    string // Optional
	RedisDB      int    // Redis logical database (default: 0)
	RedisPrefix  string // Key prefix in Redis (default: examprep:portal:)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	HTTPTimeout         time.Duration // Timeout for backend calls (default: 10s)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		APIBaseURL:          getEnvOrDefault("PORTAL_API_BASE_URL", "http://localhost:8000"),
		ProfilePath:         getEnvOrDefault("PORTAL_PROFILE_PATH", authclient.PathProfile),
		Storage:             getEnvOrDefault("PORTAL_STORAGE", StorageSQLite),
		DatabaseFile:        getEnvOrDefault("PORTAL_DATABASE_FILE", "portal.db"),
		RedisAddr:           getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPass:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvIntOrDefault("REDIS_DB", 0),
		RedisPrefix:         getEnvOrDefault("REDIS_PREFIX", "examprep:portal:"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		HTTPTimeout:         getEnvDurationOrDefault("HTTP_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown PORTAL_STORAGE %q (want sqlite, redis or memory)", c.Storage)
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("PORTAL_API_BASE_URL is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
