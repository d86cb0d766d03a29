package mux

import "github.com/GriffinCanCode/termplex/internal/shared/id"

// EventType names a UI event
type EventType string

const (
	EventPaneCreated  EventType = "pane-created"
	EventPaneClosed   EventType = "pane-closed"
	EventTabCreated   EventType = "tab-created"
	EventTabClosed    EventType = "tab-closed"
	EventTabSwitched  EventType = "tab-switched"
	EventFocusChanged EventType = "focus-changed"
	EventPaneData     EventType = "pane-data"
	EventPaneExited   EventType = "pane-exited"
	EventWindowClose  EventType = "window-close"
)

// Event is emitted to view surfaces
type Event struct {
	Type    EventType    `json:"type"`
	Tab     id.TabID     `json:"tab,omitempty"`
	Pane    id.PaneID    `json:"pane,omitempty"`
	Session id.SessionID `json:"session,omitempty"`
	Data    []byte       `json:"data,omitempty"`
	Code    *int         `json:"code,omitempty"`
}

// Listener receives UI events
type Listener func(Event)
