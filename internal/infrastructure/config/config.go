package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Shell     ShellConfig     `toml:"shell" yaml:"shell"`
	Layout    LayoutConfig    `toml:"layout" yaml:"layout"`
	Focus     FocusConfig     `toml:"focus" yaml:"focus"`
	Spawn     SpawnConfig     `toml:"spawn" yaml:"spawn"`
	Logging   LogConfig       `toml:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
}

// ServerConfig holds the hosting server configuration.
type ServerConfig struct {
	Addr string `envconfig:"ADDR" default:"127.0.0.1:7681" toml:"addr" yaml:"addr"`
}

// ShellConfig controls how session processes are spawned and torn down.
type ShellConfig struct {
	Path         string   `envconfig:"SHELL" default:"/bin/sh" toml:"path" yaml:"path"`
	Args         []string `envconfig:"SHELL_ARGS" toml:"args" yaml:"args"`
	Term         string   `envconfig:"TERM" default:"xterm-256color" toml:"term" yaml:"term"`
	Cols         int      `envconfig:"COLS" default:"80" toml:"cols" yaml:"cols"`
	Rows         int      `envconfig:"ROWS" default:"24" toml:"rows" yaml:"rows"`
	ExitGrace    Duration `envconfig:"EXIT_GRACE" default:"1500ms" toml:"exit_grace" yaml:"exit_grace"`
	KillTimeout  Duration `envconfig:"KILL_TIMEOUT" default:"2s" toml:"kill_timeout" yaml:"kill_timeout"`
	DrainTimeout Duration `envconfig:"DRAIN_TIMEOUT" default:"500ms" toml:"drain_timeout" yaml:"drain_timeout"`
}

// LayoutConfig holds split layout constraints.
type LayoutConfig struct {
	MinPaneSize float64 `envconfig:"MIN_PANE_SIZE" default:"60" toml:"min_pane_size" yaml:"min_pane_size"`
}

// FocusConfig holds the directional focus tuning constants.
type FocusConfig struct {
	DeadZone    float64 `envconfig:"FOCUS_DEAD_ZONE" default:"10" toml:"dead_zone" yaml:"dead_zone"`
	CrossWeight float64 `envconfig:"FOCUS_CROSS_WEIGHT" default:"0.5" toml:"cross_weight" yaml:"cross_weight"`
}

// SpawnConfig holds the spawn circuit breaker configuration.
type SpawnConfig struct {
	MaxFailures int      `envconfig:"SPAWN_MAX_FAILURES" default:"5" toml:"max_failures" yaml:"max_failures"`
	Cooldown    Duration `envconfig:"SPAWN_COOLDOWN" default:"10s" toml:"cooldown" yaml:"cooldown"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled" yaml:"enabled"`
}

// Duration is a time.Duration that decodes from strings like "1500ms" in
// environment variables, TOML and YAML alike.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads the environment configuration and overlays the keys present
// in the given TOML or YAML file. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Shell.Path == "" {
		return fmt.Errorf("shell path must not be empty")
	}
	if c.Shell.Cols <= 0 || c.Shell.Rows <= 0 {
		return fmt.Errorf("initial grid must be positive, got %dx%d", c.Shell.Cols, c.Shell.Rows)
	}
	// Downstream constructors treat zero as unset, so it must not pass here.
	if c.Layout.MinPaneSize <= 0 {
		return fmt.Errorf("min pane size must be positive, got %g", c.Layout.MinPaneSize)
	}
	if c.Focus.DeadZone <= 0 || c.Focus.CrossWeight <= 0 {
		return fmt.Errorf("focus dead zone and cross weight must be positive, got %g and %g",
			c.Focus.DeadZone, c.Focus.CrossWeight)
	}
	for name, d := range map[string]Duration{
		"exit grace":    c.Shell.ExitGrace,
		"kill timeout":  c.Shell.KillTimeout,
		"drain timeout": c.Shell.DrainTimeout,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d.Duration)
		}
	}
	if c.Spawn.MaxFailures <= 0 {
		return fmt.Errorf("spawn max failures must be positive, got %d", c.Spawn.MaxFailures)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:7681",
		},
		Shell: ShellConfig{
			Path:         "/bin/sh",
			Term:         "xterm-256color",
			Cols:         80,
			Rows:         24,
			ExitGrace:    Duration{1500 * time.Millisecond},
			KillTimeout:  Duration{2 * time.Second},
			DrainTimeout: Duration{500 * time.Millisecond},
		},
		Layout: LayoutConfig{
			MinPaneSize: 60,
		},
		Focus: FocusConfig{
			DeadZone:    10,
			CrossWeight: 0.5,
		},
		Spawn: SpawnConfig{
			MaxFailures: 5,
			Cooldown:    Duration{10 * time.Second},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
