// Package config loads the engine's configuration file.
//
// JSON and YAML are both accepted; YAML is coerced to JSON so one strict
// decoder (DisallowUnknownFields) validates both. Durations are Go duration
// strings. Credential fields may reference environment variables as
// ${VAR_NAME}.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	Logging     LoggingConfig      `json:"logging"`
	Storage     StorageConfig      `json:"storage"`
	Debounce    DebounceConfig     `json:"debounce"`
	Telegram    TelegramConfig     `json:"telegram"`
	Desktop     DesktopConfig      `json:"desktop"`
	Server      *ServerConfig      `json:"server,omitempty"`
	Maintenance *MaintenanceConfig `json:"maintenance,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the durable store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "~/.hooknotify/hooknotify.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DebounceConfig controls the marker side channel. An empty Dir keeps
// markers in memory only, which is fine for serve mode but means one-shot
// invocations cannot debounce each other.
type DebounceConfig struct {
	Dir string `json:"dir"`
}

// TelegramConfig configures the remote channel. Token, ChatID, and GroupID
// accept ${ENV_VAR} references. GroupID takes precedence over ChatID when
// both are set. An enabled channel with no token or target is silently
// treated as disabled.
type TelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token"`
	ChatID     string `json:"chat_id"`
	GroupID    string `json:"group_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// DesktopConfig configures the local channel. Even when enabled, the
// channel only activates if the host actually has a notification facility.
type DesktopConfig struct {
	Enabled bool `json:"enabled"`
}

// ServerConfig configures serve-mode HTTP ingest.
type ServerConfig struct {
	Addr         string `json:"addr"`
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// MaintenanceConfig schedules background housekeeping (serve mode only).
type MaintenanceConfig struct {
	// PruneSchedule is a cron expression for expired-marker pruning.
	PruneSchedule string `json:"prune_schedule,omitempty"`
}

// DefaultPath is where the engine looks when no -config flag is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./hooknotify.yaml"
	}
	return filepath.Join(home, ".hooknotify", "config.yaml")
}

// Default returns the configuration used when the default config file does
// not exist: sqlite store and file markers under ~/.hooknotify, Telegram
// wired to environment variables so the engine works with zero files on
// disk, like its predecessors did with a plain .env.
func Default() *Config {
	base := "./"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".hooknotify")
	}
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
			File:  LoggingFile{Enabled: true, Path: filepath.Join(base, "hooknotify.log")},
		},
		Storage: StorageConfig{
			Driver:      "sqlite",
			Path:        filepath.Join(base, "hooknotify.db"),
			BusyTimeout: "5s",
		},
		Debounce: DebounceConfig{Dir: filepath.Join(base, "markers")},
		Telegram: TelegramConfig{
			Enabled: true,
			Token:   "${HOOKNOTIFY_TELEGRAM_TOKEN}",
			ChatID:  "${HOOKNOTIFY_TELEGRAM_CHAT}",
			GroupID: "${HOOKNOTIFY_TELEGRAM_GROUP}",
		},
		Desktop: DesktopConfig{Enabled: true},
	}
}

// ExpandHome resolves a leading ~/ against the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
