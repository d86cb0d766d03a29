// Package http provides the REST surface of the multiplexer.
//
// Endpoints:
//   - Health: /health and /stats
//   - Sessions: /sessions, /sessions/:id/cwd
//   - Tabs: /tabs, /tabs/:id, /tabs/:id/activate
//   - Panes: /panes/:id/split, /panes/:id
//   - Focus: /focus
//   - Splits: /splits/:id/resize
//
// Handles are accepted bare (3) or prefixed (tab_3). Errors are returned as
// {"error": ..., "code": ...} with the code from apierr.
//
// Example Usage:
//
//	handlers := http.NewHandlers(engine, router, sessions, metrics)
//	handlers.Register(router.Group("/api"))
package http
