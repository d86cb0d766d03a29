package mux

import (
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"github.com/GriffinCanCode/termplex/internal/tabs"
)

// TabSnapshot describes one tab for listings
type TabSnapshot struct {
	ID      id.TabID    `json:"id"`
	Active  bool        `json:"active"`
	Focused id.PaneID   `json:"focused"`
	Layout  string      `json:"layout"`
	Panes   []tabs.Pane `json:"panes"`
}

// Snapshot is a read-only view of the whole engine
type Snapshot struct {
	Active id.TabID      `json:"active"`
	Tabs   []TabSnapshot `json:"tabs"`
}

// Snapshot returns the current tabs and panes
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{Tabs: make([]TabSnapshot, 0, e.tabs.Len())}
	if active := e.tabs.Active(); active != nil {
		snap.Active = active.ID
	}
	for _, tab := range e.tabs.Tabs() {
		snap.Tabs = append(snap.Tabs, e.describe(tab, snap.Active))
	}
	return snap
}

// Tab returns a snapshot of one tab
func (e *Engine) Tab(tabID id.TabID) (TabSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tab, ok := e.tabs.Get(tabID)
	if !ok {
		return TabSnapshot{}, false
	}
	var active id.TabID
	if a := e.tabs.Active(); a != nil {
		active = a.ID
	}
	return e.describe(tab, active), true
}

// PaneSession returns the session bound to a pane
func (e *Engine) PaneSession(paneID id.PaneID) (id.SessionID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.tabs.Pane(paneID)
	if !ok {
		return 0, false
	}
	return p.Session, true
}

func (e *Engine) describe(tab *tabs.Tab, active id.TabID) TabSnapshot {
	ts := TabSnapshot{
		ID:      tab.ID,
		Active:  tab.ID == active,
		Focused: tab.Focused,
		Layout:  tab.Tree.String(),
	}
	for _, paneID := range tab.Tree.Panes() {
		if p, ok := e.tabs.Pane(paneID); ok {
			ts.Panes = append(ts.Panes, *p)
		}
	}
	return ts
}

// PaneOf returns the pane a session is bound to
func (e *Engine) PaneOf(sid id.SessionID) (id.PaneID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.tabs.FindSession(sid)
	if !ok {
		return 0, false
	}
	return p.ID, true
}
