package routing

import (
	"context"

	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

// CommandType names a command sent toward a session
type CommandType string

const (
	CommandCreate  CommandType = "create"
	CommandDestroy CommandType = "destroy"
	CommandInput   CommandType = "input"
	CommandResize  CommandType = "resize"
	CommandGetCwd  CommandType = "get_cwd"
)

// EventType names an event emitted by a session
type EventType string

const (
	EventData EventType = "data"
	EventExit EventType = "exit"
)

// Command is a request addressed to the session side
type Command struct {
	Type      CommandType  `json:"type"`
	RequestID string       `json:"request_id,omitempty"`
	Session   id.SessionID `json:"session,omitempty"`
	Cwd       string       `json:"cwd,omitempty"`
	Data      []byte       `json:"data,omitempty"`
	Cols      uint16       `json:"cols,omitempty"`
	Rows      uint16       `json:"rows,omitempty"`
}

// Event is emitted by a session and delivered to subscribers
type Event struct {
	Type    EventType    `json:"type"`
	Session id.SessionID `json:"session"`
	Data    []byte       `json:"data,omitempty"`
	Code    int          `json:"code"`
}

// Reply answers a Command. Cwd is null when the directory could not be determined.
type Reply struct {
	Type      CommandType  `json:"type"`
	RequestID string       `json:"request_id,omitempty"`
	Session   id.SessionID `json:"session,omitempty"`
	Cwd       *string      `json:"cwd"`
}

// CreateOptions configures a new session
type CreateOptions struct {
	// Dir is the initial working directory; empty means the user's home
	Dir  string
	Cols uint16
	Rows uint16
}

// Backend owns the sessions that commands address
type Backend interface {
	Create(ctx context.Context, opts CreateOptions) (id.SessionID, error)
	Destroy(sid id.SessionID)
	Write(sid id.SessionID, data []byte) error
	Resize(sid id.SessionID, cols, rows uint16) error
	Cwd(sid id.SessionID) (string, bool)
	Has(sid id.SessionID) bool
	Events() <-chan Event
}

// Handler consumes routed events. It runs on the dispatcher goroutine.
type Handler func(Event)
