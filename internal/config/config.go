// Package config provides environment-based configuration for waystone.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the engine configuration, loaded from environment variables.
type Config struct {
	StoragePath     string // STORAGE_PATH (required): holds waystone.db and search_index/
	RNSConfigDir    string // RNS_CONFIGDIR (required): passed through to the overlay transport
	NodeIdentity    string // NODE_IDENTITY_PATH (required): passed through to the overlay transport
	TemplatesDir    string // TEMPLATES_DIR (required): owned by the out-of-scope page renderer
	LogPath         string // LOG_PATH: base directory holding announces/*.log
	LogLevel        string
	LogFormat       string
	AnnounceName    string
	CrawlerThreads  int
	QueueMaxSize    int
	VisitedCacheTTL time.Duration
	NodeRemoveAfter time.Duration
	TimeFormat      string
}

// Load reads configuration from environment variables, applying defaults
// where a variable is unset.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.StoragePath = getEnv("STORAGE_PATH", "")
	cfg.RNSConfigDir = getEnv("RNS_CONFIGDIR", "")
	cfg.NodeIdentity = getEnv("NODE_IDENTITY_PATH", "")
	cfg.TemplatesDir = getEnv("TEMPLATES_DIR", "")
	cfg.LogPath = getEnv("LOG_PATH", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.AnnounceName = getEnv("ANNOUNCE_NAME", "Waystone")
	cfg.CrawlerThreads = getEnvAsInt("CRAWLER_THREADS", 5)
	cfg.QueueMaxSize = getEnvAsInt("CRAWLER_QUEUE_MAXSIZE", 5000)
	cfg.VisitedCacheTTL = getEnvAsDuration("CRAWLER_VISITED_CACHE_SECONDS", 86400*time.Second)
	cfg.NodeRemoveAfter = time.Duration(getEnvAsInt("NODE_REMOVE_AFTER_DAYS", 30)) * 24 * time.Hour
	cfg.TimeFormat = getEnv("TIME_FORMAT", "02.01.2006, 15:04:05")

	var missing []string
	for name, val := range map[string]string{
		"STORAGE_PATH":       cfg.StoragePath,
		"RNS_CONFIGDIR":      cfg.RNSConfigDir,
		"NODE_IDENTITY_PATH": cfg.NodeIdentity,
		"TEMPLATES_DIR":      cfg.TemplatesDir,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("required environment variables not set: %v", missing)
	}

	if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
		return cfg, fmt.Errorf("storage path %q: %w", cfg.StoragePath, err)
	}
	info, err := os.Stat(cfg.StoragePath)
	if err != nil {
		return cfg, fmt.Errorf("storage path %q: %w", cfg.StoragePath, err)
	}
	if !info.IsDir() {
		return cfg, errors.New("STORAGE_PATH is not a directory")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration parses bare integers as seconds (matching the *_SECONDS
// env var naming) and falls back to Go duration syntax ("30s", "24h") when
// the value isn't a bare integer.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
