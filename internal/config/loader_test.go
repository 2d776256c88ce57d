package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range envBindings {
		name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadDefault()
	require.NoError(t, err)

	require.Equal(t, 2, cfg.Engine.KeeperBoundary)
	require.Equal(t, 14, cfg.TUI.Days)
	require.InDelta(t, 0.35, cfg.TUI.RootMapHeightPercent, 1e-9)
	require.True(t, cfg.Feed.Enabled)
	require.Equal(t, filepath.Join(cfg.Global.DataDir, "arcmini.db"), cfg.DatabasePath())
	require.Equal(t, filepath.Join(cfg.Global.DataDir, "feed.jsonl"), cfg.FeedPath())
	require.Equal(t, filepath.Join(cfg.Global.ConfigDir, "session.yaml"), cfg.SessionPath())
}

func TestLoadPrecedence(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: ~/timeline.db
engine:
  keeper_boundary: 4
  max_processing_items: 12
tui:
  days: 7
  theme: high-contrast
  refresh_interval: 5s
`), 0o644))

	t.Setenv("ARCMINI_ENGINE_KEEPER_BOUNDARY", "6")

	loader := NewLoader()
	loader.SetConfigFile(path)
	loader.Set("tui.days", 3)
	cfg, err := loader.Load()
	require.NoError(t, err)

	require.Equal(t, path, loader.ConfigFileUsed())
	require.Equal(t, 6, cfg.Engine.KeeperBoundary, "env beats file")
	require.Equal(t, 12, cfg.Engine.MaxProcessingItems, "file beats defaults")
	require.Equal(t, 3, cfg.TUI.Days, "explicit set beats file")
	require.Equal(t, "high-contrast", cfg.TUI.Theme)
	require.Equal(t, 5*time.Second, cfg.TUI.RefreshInterval)

	home, _ := os.UserHomeDir()
	require.Equal(t, filepath.Join(home, "timeline.db"), cfg.DatabasePath())
}

func TestLoadFromFileMissing(t *testing.T) {
	isolateEnv(t)

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "keeper boundary", mutate: func(c *Config) { c.Engine.KeeperBoundary = 0 }},
		{name: "max items", mutate: func(c *Config) { c.Engine.MaxProcessingItems = 0 }},
		{name: "radius", mutate: func(c *Config) { c.Engine.PlaceRadiusMeters = 0 }},
		{name: "days", mutate: func(c *Config) { c.TUI.Days = 0 }},
		{name: "map height", mutate: func(c *Config) { c.TUI.RootMapHeightPercent = 1 }},
		{name: "refresh", mutate: func(c *Config) { c.TUI.RefreshInterval = time.Millisecond }},
		{name: "theme", mutate: func(c *Config) { c.TUI.Theme = "neon" }},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "busy timeout", mutate: func(c *Config) { c.Database.BusyTimeoutMs = -1 }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestExpandTilde(t *testing.T) {
	home, _ := os.UserHomeDir()

	require.Equal(t, "", expandTilde(""))
	require.Equal(t, home, expandTilde("~"))
	require.Equal(t, filepath.Join(home, "a", "b"), expandTilde("~/a/b"))
	require.Equal(t, "/abs/path", expandTilde("/abs/path"))
}
