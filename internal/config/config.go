// Package config handles arcmini configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the root configuration structure for arcmini.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Engine tunes the processing boundary and place lookup.
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Feed is the JSONL revision feed.
	Feed FeedConfig `yaml:"feed" mapstructure:"feed"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where arcmini stores its data (default: ~/.local/share/arcmini).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/arcmini).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database.
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. The TUI always logs to a file.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// EngineConfig contains processing engine settings.
type EngineConfig struct {
	KeeperBoundary     int     `yaml:"keeper_boundary" mapstructure:"keeper_boundary"`
	MaxProcessingItems int     `yaml:"max_processing_items" mapstructure:"max_processing_items"`
	PlaceRadiusMeters  float64 `yaml:"place_radius_meters" mapstructure:"place_radius_meters"`
}

// FeedConfig contains revision feed settings.
type FeedConfig struct {
	// Path is the JSONL file to tail (default: DataDir/feed.jsonl).
	Path string `yaml:"path" mapstructure:"path"`

	// Enabled tails the feed while the TUI runs.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// Days is how many day cards the pager holds, ending today.
	Days int `yaml:"days" mapstructure:"days"`

	// RootMapHeightPercent is the map share restored when a day becomes live.
	RootMapHeightPercent float64 `yaml:"root_map_height_percent" mapstructure:"root_map_height_percent"`

	// RefreshInterval is how often live days rebuild without engine events.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "arcmini"),
			ConfigDir: filepath.Join(homeDir, ".config", "arcmini"),
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/arcmini.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Engine: EngineConfig{
			KeeperBoundary:     2,
			MaxProcessingItems: 30,
			PlaceRadiusMeters:  150,
		},
		Feed: FeedConfig{
			Enabled: true,
		},
		TUI: TUIConfig{
			Theme:                "default",
			Days:                 14,
			RootMapHeightPercent: 0.35,
			RefreshInterval:      30 * time.Second,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be one of console, json")
	}

	if c.Engine.KeeperBoundary < 1 {
		return fmt.Errorf("engine.keeper_boundary must be at least 1")
	}
	if c.Engine.MaxProcessingItems < 1 {
		return fmt.Errorf("engine.max_processing_items must be at least 1")
	}
	if c.Engine.PlaceRadiusMeters <= 0 {
		return fmt.Errorf("engine.place_radius_meters must be positive")
	}

	if c.TUI.Days < 1 {
		return fmt.Errorf("tui.days must be at least 1")
	}
	if c.TUI.RootMapHeightPercent <= 0 || c.TUI.RootMapHeightPercent >= 1 {
		return fmt.Errorf("tui.root_map_height_percent must be between 0 and 1")
	}
	if c.TUI.RefreshInterval < time.Second {
		return fmt.Errorf("tui.refresh_interval must be at least 1s")
	}
	switch c.TUI.Theme {
	case "default", "high-contrast":
	default:
		return fmt.Errorf("tui.theme must be one of default, high-contrast")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "arcmini.db")
}

// FeedPath returns the full feed path.
func (c *Config) FeedPath() string {
	if c.Feed.Path != "" {
		return c.Feed.Path
	}
	return filepath.Join(c.Global.DataDir, "feed.jsonl")
}

// LogPath returns the TUI log file, defaulting under DataDir.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.Global.DataDir, "arcmini.log")
}

// SessionPath returns where TUI session state is persisted.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Global.ConfigDir, "session.yaml")
}
