package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is the process configuration, read from the environment.
// User-facing preferences (city, units, tickers, timezone) live in the file
// store, not here.
type AppConfig struct {
	// RefreshInterval is the TTL gating weather and quote fetches, and the
	// cadence of the background refresh job.
	RefreshInterval time.Duration

	// GeoTTL gates geocoding lookups; resolved coordinates rarely change.
	GeoTTL time.Duration

	// HTTPTimeout bounds every outbound provider call so one unresponsive
	// provider cannot stall a whole refresh tick.
	HTTPTimeout time.Duration

	Port    string
	DataDir string
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	refresh, err := getenvDuration("REFRESH_INTERVAL", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	geoTTL, err := getenvDuration("GEO_TTL", "1h")
	if err != nil {
		return nil, fmt.Errorf("invalid GEO_TTL: %w", err)
	}
	cfg.GeoTTL = geoTTL

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DataDir = getenvDefault("DATA_DIR", "data")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(getenvDefault(key, def))
}
