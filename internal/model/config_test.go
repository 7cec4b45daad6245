package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Server.PollIntervalSec)
	assert.Equal(t, "default", cfg.Display.Theme)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Server.BaseURL)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	in := &AppConfig{
		Server: ServerConfig{
			BaseURL:         "https://fleet.example.com/api",
			PollIntervalSec: 30,
		},
		Display: DisplayConfig{Theme: "default"},
		Log:     LogConfig{Level: "debug"},
	}
	require.NoError(t, SaveConfig(path, in))

	out, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, in.Server.BaseURL, out.Server.BaseURL)
	assert.Equal(t, 30, out.Server.PollIntervalSec)
	assert.Equal(t, "debug", out.Log.Level)
}

func TestSaveConfigCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "config.yaml")

	require.NoError(t, SaveConfig(path, defaultAppConfig()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadConfigClampsBadPollInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  base_url: https://fleet.example.com\n  poll_interval_sec: -5\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Server.PollIntervalSec)
}
