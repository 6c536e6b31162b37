// Package config reads the engine's configuration from the
// environment. Every tunable the pricing policy depends on is injected
// here rather than hard-coded at its use site.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	// DataPath is the catalog JSON file used when Redis is not configured
	DataPath string

	// RedisAddr switches persistence to Redis when non-empty
	RedisAddr     string
	RedisPassword string

	// Marketplace credentials; a source without credentials is skipped
	ReverbToken string
	EbayAppID   string

	// Enrichment collaborator
	EnrichURL   string
	EnrichToken string

	// Pricing policy
	CacheTTL            time.Duration
	SuspiciousThreshold float64
	HistoryCap          int

	// Gateway behavior
	CallTimeout          time.Duration
	MaxListingsPerSource int

	// Scheduled refresh; empty schedule disables it
	RefreshSchedule string
	WatchedEntries  []string
}

// Load builds a Config from the environment, filling defaults for
// everything unset.
func Load() Config {
	return Config{
		DataPath:      getEnv("MARKETPULSE_DATA", "./data/catalog.json"),
		RedisAddr:     os.Getenv("MARKETPULSE_REDIS_ADDR"),
		RedisPassword: os.Getenv("MARKETPULSE_REDIS_PASSWORD"),

		ReverbToken: os.Getenv("REVERB_TOKEN"),
		EbayAppID:   os.Getenv("EBAY_APP_ID"),

		EnrichURL:   os.Getenv("ENRICH_URL"),
		EnrichToken: os.Getenv("ENRICH_TOKEN"),

		CacheTTL:            getDuration("MARKETPULSE_CACHE_TTL", 12*time.Hour),
		SuspiciousThreshold: getFloat("MARKETPULSE_SUSPICIOUS_THRESHOLD", 10),
		HistoryCap:          getInt("MARKETPULSE_HISTORY_CAP", 365),

		CallTimeout:          getDuration("MARKETPULSE_CALL_TIMEOUT", 10*time.Second),
		MaxListingsPerSource: getInt("MARKETPULSE_MAX_LISTINGS", 25),

		RefreshSchedule: os.Getenv("MARKETPULSE_REFRESH_SCHEDULE"),
		WatchedEntries:  splitCSV(os.Getenv("MARKETPULSE_WATCHED_ENTRIES")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
