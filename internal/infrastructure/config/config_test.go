package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pinEnv clears variables commonly set by the surrounding shell.
func pinEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SHELL", "/bin/sh")
	t.Setenv("TERM", "xterm-256color")
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1:7681", cfg.Server.Addr)

	assert.Equal(t, "/bin/sh", cfg.Shell.Path)
	assert.Equal(t, "xterm-256color", cfg.Shell.Term)
	assert.Equal(t, 80, cfg.Shell.Cols)
	assert.Equal(t, 24, cfg.Shell.Rows)
	assert.Equal(t, 1500*time.Millisecond, cfg.Shell.ExitGrace.Duration)
	assert.Equal(t, 2*time.Second, cfg.Shell.KillTimeout.Duration)

	assert.Equal(t, 60.0, cfg.Layout.MinPaneSize)
	assert.Equal(t, 10.0, cfg.Focus.DeadZone)
	assert.Equal(t, 0.5, cfg.Focus.CrossWeight)

	assert.Equal(t, 5, cfg.Spawn.MaxFailures)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	pinEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	pinEnv(t)
	envVars := map[string]string{
		"ADDR":               "0.0.0.0:9000",
		"SHELL":              "/bin/zsh",
		"SHELL_ARGS":         "-l,-i",
		"EXIT_GRACE":         "3s",
		"MIN_PANE_SIZE":      "120",
		"FOCUS_DEAD_ZONE":    "4",
		"FOCUS_CROSS_WEIGHT": "0.25",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_ENABLED": "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "/bin/zsh", cfg.Shell.Path)
	assert.Equal(t, []string{"-l", "-i"}, cfg.Shell.Args)
	assert.Equal(t, 3*time.Second, cfg.Shell.ExitGrace.Duration)
	assert.Equal(t, 120.0, cfg.Layout.MinPaneSize)
	assert.Equal(t, 4.0, cfg.Focus.DeadZone)
	assert.Equal(t, 0.25, cfg.Focus.CrossWeight)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)

	// untouched values keep their defaults
	assert.Equal(t, 80, cfg.Shell.Cols)
	assert.Equal(t, 2*time.Second, cfg.Shell.KillTimeout.Duration)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	pinEnv(t)
	t.Setenv("EXIT_GRACE", "soon")

	_, err := Load()
	assert.Error(t, err)

	_, err = LoadFile("")
	assert.Error(t, err, "a bad environment is not masked by defaults")
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "termplex.toml",
			content: `
[shell]
path = "/bin/bash"
exit_grace = "250ms"

[focus]
dead_zone = 20.0
`,
		},
		{
			name: "yaml",
			file: "termplex.yaml",
			content: `
shell:
  path: /bin/bash
  exit_grace: 250ms
focus:
  dead_zone: 20.0
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinEnv(t)
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			cfg, err := LoadFile(path)
			require.NoError(t, err)

			assert.Equal(t, "/bin/bash", cfg.Shell.Path)
			assert.Equal(t, 250*time.Millisecond, cfg.Shell.ExitGrace.Duration)
			assert.Equal(t, 20.0, cfg.Focus.DeadZone)

			// keys absent from the file keep env/default values
			assert.Equal(t, 0.5, cfg.Focus.CrossWeight)
			assert.Equal(t, 24, cfg.Shell.Rows)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	pinEnv(t)
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "termplex.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0o600))
	_, err = LoadFile(ini)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[shell\npath="), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}

func TestLoadFileEmptyPath(t *testing.T) {
	pinEnv(t)

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty shell", func(c *Config) { c.Shell.Path = "" }},
		{"zero cols", func(c *Config) { c.Shell.Cols = 0 }},
		{"negative min pane", func(c *Config) { c.Layout.MinPaneSize = -1 }},
		{"negative dead zone", func(c *Config) { c.Focus.DeadZone = -1 }},
		{"zero min pane", func(c *Config) { c.Layout.MinPaneSize = 0 }},
		{"zero dead zone", func(c *Config) { c.Focus.DeadZone = 0 }},
		{"zero cross weight", func(c *Config) { c.Focus.CrossWeight = 0 }},
		{"zero exit grace", func(c *Config) { c.Shell.ExitGrace = Duration{} }},
		{"zero kill timeout", func(c *Config) { c.Shell.KillTimeout = Duration{} }},
		{"zero max failures", func(c *Config) { c.Spawn.MaxFailures = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 2s ")))
	assert.Equal(t, 2*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("later")))
}
