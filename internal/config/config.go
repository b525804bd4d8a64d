// Package config resolves quell's runtime configuration from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults for tunables not set in the config file.
const (
	DefaultDebounceWindow    = 5 * time.Second
	DefaultBlockedMaxEntries = 100
	DefaultAllowedMaxAge     = 5 * 24 * time.Hour
	DefaultQueueSize         = 512
	DefaultPatternCacheSize  = 512
)

// Config holds the resolved runtime configuration.
type Config struct {
	DatabasePath      string
	DebounceWindow    time.Duration
	BlockedMaxEntries int
	AllowedMaxAge     time.Duration
	QueueSize         int
	PatternCacheSize  int
}

// SetDefaults registers default values with viper. Call before Load.
func SetDefaults() {
	viper.SetDefault("debounce.window", DefaultDebounceWindow)
	viper.SetDefault("history.blocked_max_entries", DefaultBlockedMaxEntries)
	viper.SetDefault("history.allowed_max_age", DefaultAllowedMaxAge)
	viper.SetDefault("engine.queue_size", DefaultQueueSize)
	viper.SetDefault("engine.pattern_cache_size", DefaultPatternCacheSize)
}

// Load resolves the configuration from viper.
func Load() (*Config, error) {
	dbPath, err := DatabasePath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabasePath:      dbPath,
		DebounceWindow:    viper.GetDuration("debounce.window"),
		BlockedMaxEntries: viper.GetInt("history.blocked_max_entries"),
		AllowedMaxAge:     viper.GetDuration("history.allowed_max_age"),
		QueueSize:         viper.GetInt("engine.queue_size"),
		PatternCacheSize:  viper.GetInt("engine.pattern_cache_size"),
	}
	if cfg.DebounceWindow < 0 {
		return nil, fmt.Errorf("debounce window must not be negative: %s", cfg.DebounceWindow)
	}
	if cfg.BlockedMaxEntries <= 0 {
		return nil, fmt.Errorf("blocked history cap must be positive: %d", cfg.BlockedMaxEntries)
	}
	return cfg, nil
}

// DatabasePath resolves the database location: the database.path config
// key when set, otherwise the standard data directory.
func DatabasePath() (string, error) {
	if path := viper.GetString("database.path"); path != "" {
		return ExpandPath(path), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "quell", "quell.db"), nil
}

// ExpandPath resolves a leading ~ and any $VAR references in a
// configured path. A home directory that cannot be resolved leaves the
// tilde in place rather than failing.
func ExpandPath(path string) string {
	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return os.ExpandEnv(path)
}
