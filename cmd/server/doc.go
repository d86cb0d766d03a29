// Package main is the entry point for the termplex server.
//
// termplex hosts pseudo-terminal shells behind a tab and split-pane layout
// engine and serves them to view surfaces over WebSocket and REST.
//
// Architecture:
//
//	View (WebSocket/REST) → mux.Engine → routing.Router → session.Manager (PTY)
//	                      ← UI events  ← session events ←
//
// Configuration:
//   - Environment variables (12-factor)
//   - TOML or YAML file (-config), overlaid on the environment
//   - CLI flags (override both)
//
// Usage:
//
//	# Production mode
//	./server -addr 127.0.0.1:7681 -config termplex.toml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
