package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type AppConfig struct {
	Port string

	// OSRMBaseURL is the routing service root. Empty means straight-line legs only.
	OSRMBaseURL       string
	HTTPTimeout       time.Duration
	RoutingMaxRetries int

	GoogleGeocodingAPIKey string

	// HistoryLimit caps undo history per session (0 = unlimited).
	HistoryLimit int

	// SnapshotInterval controls how often changed routes are snapshotted.
	SnapshotInterval time.Duration

	// In-memory store retention.
	StoreMaxHistory int           // max number of snapshots per session (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	LogLevel  string
	LogFormat string // console or json
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg("no .env file loaded")
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.OSRMBaseURL = strings.TrimSpace(os.Getenv("OSRM_BASE_URL"))
	cfg.GoogleGeocodingAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.RoutingMaxRetries = getenvInt("ROUTING_MAX_RETRIES", 3)
	if cfg.RoutingMaxRetries < 0 {
		return nil, fmt.Errorf("invalid ROUTING_MAX_RETRIES: %d", cfg.RoutingMaxRetries)
	}

	cfg.HistoryLimit = getenvInt("HISTORY_LIMIT", 100)

	if cfg.SnapshotInterval, err = getenvDuration("SNAPSHOT_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 1440) // 24h at one-minute intervals
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "console"))
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q", cfg.LogFormat)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
