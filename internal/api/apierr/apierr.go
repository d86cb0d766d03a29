// Package apierr maps engine errors onto the codes view surfaces see.
package apierr

import (
	"context"
	"errors"
	"net/http"

	"github.com/GriffinCanCode/termplex/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/termplex/internal/layout"
	"github.com/GriffinCanCode/termplex/internal/mux"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/session"
	"github.com/GriffinCanCode/termplex/internal/tabs"
)

// Error codes
const (
	CodeSpawnFailed  = "spawn_failed"
	CodeUnavailable  = "spawn_unavailable"
	CodeNotFound     = "not_found"
	CodeInvalid      = "invalid_request"
	CodeShuttingDown = "shutting_down"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal"
)

var (
	// ErrInvalid marks malformed requests
	ErrInvalid = errors.New("invalid request")
	// ErrRateLimited is returned when a client exceeds its message budget
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Classify returns the HTTP status and error code for err
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, session.ErrSpawn):
		return http.StatusBadGateway, CodeSpawnFailed
	case errors.Is(err, tabs.ErrTabNotFound), errors.Is(err, tabs.ErrPaneNotFound), errors.Is(err, layout.ErrInvariant):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrInvalid), errors.Is(err, routing.ErrDecode), errors.Is(err, routing.ErrUnknownCommand):
		return http.StatusBadRequest, CodeInvalid
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, mux.ErrClosed), errors.Is(err, session.ErrClosed), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, CodeShuttingDown
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
