package ws

import (
	"github.com/GriffinCanCode/termplex/internal/mux"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/shared/geom"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

// Inbound message types
const (
	MsgCreate      = "create"
	MsgDestroy     = "destroy"
	MsgInput       = "input"
	MsgResize      = "resize"
	MsgGetCwd      = "get_cwd"
	MsgNewTab      = "new_tab"
	MsgCloseTab    = "close_tab"
	MsgSwitchTab   = "switch_tab"
	MsgNextTab     = "next_tab"
	MsgPrevTab     = "prev_tab"
	MsgSplit       = "split"
	MsgClosePane   = "close_pane"
	MsgFocus       = "focus"
	MsgFocusDir    = "focus_dir"
	MsgFocusNext   = "focus_next"
	MsgFocusPrev   = "focus_prev"
	MsgResizeSplit = "resize_split"
	MsgResizeTab   = "resize_tab"
	MsgGeometry    = "geometry"
	MsgMetrics     = "metrics"
	MsgPing        = "ping"
)

// Outbound message types
const (
	OutHello   = "hello"
	OutEvent   = "event"
	OutSession = "session"
	OutReply   = "reply"
	OutResult  = "result"
	OutPong    = "pong"
	OutError   = "error"
)

// Message is a request from a view surface. Fields are read according to Type.
type Message struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	Session id.SessionID `json:"session,omitempty"`
	Tab     id.TabID     `json:"tab,omitempty"`
	Pane    id.PaneID    `json:"pane,omitempty"`
	Node    id.NodeID    `json:"node,omitempty"`

	Cwd  string `json:"cwd,omitempty"`
	Data []byte `json:"data,omitempty"`
	Cols uint16 `json:"cols,omitempty"`
	Rows uint16 `json:"rows,omitempty"`

	Orientation string  `json:"orientation,omitempty"`
	Direction   string  `json:"direction,omitempty"`
	Delta       float64 `json:"delta,omitempty"`

	Bounds    *geom.Rect     `json:"bounds,omitempty"`
	Boxes     []geom.PaneBox `json:"boxes,omitempty"`
	ColWidth  float64        `json:"col_width,omitempty"`
	RowHeight float64        `json:"row_height,omitempty"`
}

// Result carries the outcome of a UI action
type Result struct {
	Tab         id.TabID  `json:"tab,omitempty"`
	Pane        id.PaneID `json:"pane,omitempty"`
	Moved       *bool     `json:"moved,omitempty"`
	WindowClose bool      `json:"window_close,omitempty"`
}

// Outbound is every message sent to a view surface
type Outbound struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	Client    id.ClientID    `json:"client,omitempty"`
	Event     *mux.Event     `json:"event,omitempty"`
	Session   *routing.Event `json:"session,omitempty"`
	Reply     *routing.Reply `json:"reply,omitempty"`
	Result    *Result        `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Code      string         `json:"code,omitempty"`
}
