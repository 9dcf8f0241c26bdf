package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// Config File
// =============================================================================

// Config holds settings loaded from a TOML config file. Flags override
// config values, which override the built-in defaults.
type Config struct {
	// Addr is the server listen address.
	Addr string `toml:"addr"`

	// DebounceMs is the drag coalescing quiet period in milliseconds.
	DebounceMs int `toml:"debounce_ms"`

	// QueueSize bounds each session's outbound message queue.
	QueueSize int `toml:"queue_size"`

	// Graph is an optional node-link JSON file loaded at startup.
	Graph string `toml:"graph"`
}

// defaultConfig returns the built-in defaults used when no config file
// or flag provides a value.
func defaultConfig() Config {
	return Config{
		Addr:       ":8080",
		DebounceMs: 200,
		QueueSize:  64,
	}
}

// loadConfig reads a TOML config file and merges it over the defaults.
// An empty path falls back to the XDG config location; a missing file at
// the default location is not an error, but an explicitly named file
// must exist.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.DebounceMs < 0 {
		return cfg, fmt.Errorf("config %s: debounce_ms must not be negative", path)
	}
	if cfg.QueueSize < 0 {
		return cfg, fmt.Errorf("config %s: queue_size must not be negative", path)
	}
	return cfg, nil
}

// Debounce returns the drag coalescing period as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}
