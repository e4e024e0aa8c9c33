// Package config persists user-configurable defaults across runs,
// following the teacher's load/save shape: defaults on any read error,
// JSON under $XDG_CONFIG_HOME, restrictive permissions.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config holds user-configurable defaults.
type Config struct {
	BacklogSecs      int    `json:"backlog_secs"`
	IntervalMs       int    `json:"interval_ms"`
	MsgBufferCap     int    `json:"msg_buffer_capacity"`
	UIRefreshRateMs  int    `json:"ui_refresh_rate_ms"`
	DefaultFilter    string `json:"default_filter"`
	SocketSortColumn string `json:"socket_sort_column"`

	Prometheus PrometheusConfig `json:"prometheus"`
}

// PrometheusConfig controls the optional metrics exporter.
type PrometheusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// Default returns a config with the spec's documented CLI defaults.
func Default() Config {
	return Config{
		BacklogSecs:      30,
		IntervalMs:       250,
		MsgBufferCap:     4096,
		UIRefreshRateMs:  500,
		DefaultFilter:    "",
		SocketSortColumn: "rate",
		Prometheus: PrometheusConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// Interval returns IntervalMs as a time.Duration, floored at 10ms.
func (c Config) Interval() time.Duration {
	ms := c.IntervalMs
	if ms < 10 {
		ms = 10
	}
	return time.Duration(ms) * time.Millisecond
}

// Backlog returns BacklogSecs as a time.Duration.
func (c Config) Backlog() time.Duration {
	return time.Duration(c.BacklogSecs) * time.Second
}

// Capacity returns ceil(backlog/window), the store's segment capacity.
func (c Config) Capacity() int {
	window := c.Interval()
	backlog := c.Backlog()
	n := int(backlog / window)
	if backlog%window != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// UIRefreshRate returns UIRefreshRateMs as a time.Duration.
func (c Config) UIRefreshRate() time.Duration {
	return time.Duration(c.UIRefreshRateMs) * time.Millisecond
}

// Path returns ~/.config/nettop/config.json (or $XDG_CONFIG_HOME).
// Returns the empty string if the home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // refuse to fall back to /tmp
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "nettop", "config.json")
}

// Load loads config from disk; returns defaults on any error.
func Load() Config {
	cfg := Default()
	p := Path()
	if p == "" {
		return cfg
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("config: parse error, using defaults", slog.Any("error", err))
		return Default()
	}
	return cfg
}

// Save writes cfg to disk under 0700/0600 permissions.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("config: cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
