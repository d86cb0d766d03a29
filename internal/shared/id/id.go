// Package id provides the typed handles used across the multiplexer.
//
// Sessions, panes, tabs and split nodes are addressed by opaque typed integers
// so messages crossing the routing boundary carry plain values, never
// references:
//   - Type safety: separate types prevent passing a PaneID where a SessionID is expected
//   - Monotonic: ids come from per-kind counters, zero is never issued
//   - Never reused: a destroyed id cannot alias a later object in the same process
//   - Debuggable: String() renders a kind prefix (sess_3, pane_7)
//
// View-surface connections are identified by prefixed UUID strings instead,
// since they are minted at the network edge.
package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// SessionID identifies a pseudo-terminal backed process
type SessionID uint64

// PaneID identifies a layout leaf
type PaneID uint64

// TabID identifies a tab and its layout tree
type TabID uint64

// NodeID identifies an internal split node
type NodeID uint64

// ClientID identifies a connected view surface
type ClientID string

// ============================================================================
// ID Prefixes (for debugging and type identification)
// ============================================================================

const (
	SessionPrefix = "sess"
	PanePrefix    = "pane"
	TabPrefix     = "tab"
	NodePrefix    = "node"
	ClientPrefix  = "client"
)

// String methods for ID types
func (id SessionID) String() string { return fmt.Sprintf("%s_%d", SessionPrefix, uint64(id)) }
func (id PaneID) String() string    { return fmt.Sprintf("%s_%d", PanePrefix, uint64(id)) }
func (id TabID) String() string     { return fmt.Sprintf("%s_%d", TabPrefix, uint64(id)) }
func (id NodeID) String() string    { return fmt.Sprintf("%s_%d", NodePrefix, uint64(id)) }
func (id ClientID) String() string  { return string(id) }

// IsZero reports whether the handle was never issued
func (id SessionID) IsZero() bool { return id == 0 }
func (id PaneID) IsZero() bool    { return id == 0 }
func (id TabID) IsZero() bool     { return id == 0 }
func (id NodeID) IsZero() bool    { return id == 0 }

// ============================================================================
// Counter (lock-free)
// ============================================================================

// Counter hands out increasing non-zero values
type Counter struct {
	last atomic.Uint64
}

// Next returns the next value, starting at 1
func (c *Counter) Next() uint64 {
	return c.last.Add(1)
}

// ============================================================================
// Registry of per-kind counters
// ============================================================================

// Registry allocates every kind of handle for one multiplexer instance.
// The zero value is ready to use and safe for concurrent use.
type Registry struct {
	sessions Counter
	panes    Counter
	tabs     Counter
	nodes    Counter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// NextSession allocates a session handle
func (r *Registry) NextSession() SessionID { return SessionID(r.sessions.Next()) }

// NextPane allocates a pane handle
func (r *Registry) NextPane() PaneID { return PaneID(r.panes.Next()) }

// NextTab allocates a tab handle
func (r *Registry) NextTab() TabID { return TabID(r.tabs.Next()) }

// NextNode allocates a split node handle
func (r *Registry) NextNode() NodeID { return NodeID(r.nodes.Next()) }

// NewClientID generates a view-surface connection id
func NewClientID() ClientID {
	return ClientID(fmt.Sprintf("%s_%s", ClientPrefix, uuid.NewString()))
}
