// Package config provides 12-factor configuration for the multiplexer.
//
// Configuration is loaded from environment variables with defaults. An
// optional TOML or YAML file (cmd/server -config) overlays the keys it sets.
//
// Configuration Sections:
//   - Server: listen address of the hosting server
//   - Shell: shell binary, TERM, initial grid, exit grace and teardown timeouts
//   - Layout: minimum pane size enforced by split resizing
//   - Focus: directional focus dead zone and cross-axis weight
//   - Spawn: spawn circuit breaker thresholds
//   - Logging: log level and output format
//   - RateLimit: per-IP HTTP rate limiting
//
// Environment Variables:
//   - ADDR
//   - SHELL, SHELL_ARGS, TERM, COLS, ROWS, EXIT_GRACE, KILL_TIMEOUT, DRAIN_TIMEOUT
//   - MIN_PANE_SIZE, FOCUS_DEAD_ZONE, FOCUS_CROSS_WEIGHT
//   - SPAWN_MAX_FAILURES, SPAWN_COOLDOWN
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
