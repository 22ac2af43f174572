// Package config reads process settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Port     string
	LogLevel string

	Snapshot SnapshotConfig
	Metrics  MetricsConfig

	TracingEnabled bool

	// OrderRateLimit is placements per client IP per minute; 0 disables it.
	OrderRateLimit int
}

type SnapshotConfig struct {
	Backend     string
	Dir         string
	DatabaseURL string
	RedisAddr   string
	RedisPrefix string
}

type MetricsConfig struct {
	Enabled bool
	Token   string
}

// Load reads the environment. Values already set in the environment win
// over the .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		Snapshot: SnapshotConfig{
			Backend:     strings.ToLower(getenv("SNAPSHOT_BACKEND", BackendFile)),
			Dir:         getenv("SNAPSHOT_DIR", "data"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
			RedisPrefix: getenv("REDIS_PREFIX", "restaurant:"),
		},
		Metrics: MetricsConfig{
			Enabled: getbool("METRICS_ENABLED", true),
			Token:   os.Getenv("METRICS_TOKEN"),
		},
		TracingEnabled: getbool("TRACING_ENABLED", false),
	}

	limit, err := strconv.Atoi(getenv("ORDER_RATE_LIMIT", "30"))
	if err != nil || limit < 0 {
		return Config{}, errors.New("ORDER_RATE_LIMIT must be a non-negative integer")
	}
	cfg.OrderRateLimit = limit

	switch cfg.Snapshot.Backend {
	case BackendFile, BackendMemory, BackendRedis:
	case BackendPostgres:
		if cfg.Snapshot.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required for the postgres snapshot backend")
		}
	default:
		return Config{}, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", cfg.Snapshot.Backend)
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
