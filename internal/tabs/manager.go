package tabs

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/termplex/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termplex/internal/layout"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"go.uber.org/zap"
)

// Sessions is the part of the session manager tabs drive
type Sessions interface {
	Create(ctx context.Context, opts routing.CreateOptions) (id.SessionID, error)
	Destroy(sid id.SessionID)
	Cwd(sid id.SessionID) (string, bool)
}

// Pane binds a layout leaf to the session it displays
type Pane struct {
	ID      id.PaneID    `json:"id"`
	Session id.SessionID `json:"session"`
	Tab     id.TabID     `json:"tab"`
}

// Tab is one layout tree and its focused pane
type Tab struct {
	ID      id.TabID
	Tree    *layout.Tree
	Focused id.PaneID
}

// Manager owns the open tabs and the pane to session bindings
type Manager struct {
	sessions   Sessions
	registry   *id.Registry
	log        *logging.Logger
	layoutOpts []layout.Option

	tabs      map[id.TabID]*Tab
	order     []id.TabID
	active    id.TabID
	panes     map[id.PaneID]*Pane
	bySession map[id.SessionID]*Pane
}

// NewManager creates a manager with no tabs
func NewManager(sessions Sessions, registry *id.Registry, log *logging.Logger, opts ...layout.Option) *Manager {
	if registry == nil {
		registry = id.NewRegistry()
	}
	return &Manager{
		sessions:   sessions,
		registry:   registry,
		log:        logging.OrNop(log).Named("tabs"),
		layoutOpts: opts,
		tabs:       make(map[id.TabID]*Tab),
		panes:      make(map[id.PaneID]*Pane),
		bySession:  make(map[id.SessionID]*Pane),
	}
}

// Create opens a tab with one pane and makes it active. The pane starts in
// the working directory of the previously focused pane, or the home directory
// when that cannot be determined. A spawn failure aborts the tab.
func (m *Manager) Create(ctx context.Context) (id.TabID, error) {
	dir := ""
	if tab := m.Active(); tab != nil {
		dir = m.paneCwd(tab.Focused)
	}

	sid, err := m.sessions.Create(ctx, routing.CreateOptions{Dir: dir})
	if err != nil {
		return 0, fmt.Errorf("failed to create tab: %w", err)
	}

	tabID := m.registry.NextTab()
	paneID := m.registry.NextPane()
	tab := &Tab{
		ID:      tabID,
		Tree:    layout.New(tabID, paneID, m.registry, m.layoutOpts...),
		Focused: paneID,
	}

	m.tabs[tabID] = tab
	m.order = append(m.order, tabID)
	m.active = tabID
	m.bind(&Pane{ID: paneID, Session: sid, Tab: tabID})

	m.log.Info("Tab created",
		zap.Uint64("tab", uint64(tabID)),
		zap.Uint64("pane", uint64(paneID)),
		zap.Uint64("session", uint64(sid)))
	return tabID, nil
}

// Close destroys every session in the tab and removes it. Closing the last
// remaining tab tears nothing down and reports windowClose instead.
func (m *Manager) Close(tabID id.TabID) (windowClose bool, err error) {
	tab, err := m.tab(tabID)
	if err != nil {
		return false, err
	}
	if len(m.order) == 1 {
		return true, nil
	}

	for _, paneID := range tab.Tree.Panes() {
		if p, ok := m.panes[paneID]; ok {
			m.sessions.Destroy(p.Session)
			m.unbind(p)
		}
	}

	idx := m.index(tabID)
	m.order = append(m.order[:idx], m.order[idx+1:]...)
	delete(m.tabs, tabID)

	if m.active == tabID {
		if idx >= len(m.order) {
			idx = len(m.order) - 1
		}
		m.active = m.order[idx]
	}

	m.log.Info("Tab closed", zap.Uint64("tab", uint64(tabID)))
	return false, nil
}

// Switch makes tabID the active tab. Inactive tabs keep running.
func (m *Manager) Switch(tabID id.TabID) error {
	if _, err := m.tab(tabID); err != nil {
		return err
	}
	m.active = tabID
	return nil
}

// Next activates the tab after the active one, wrapping around
func (m *Manager) Next() id.TabID {
	return m.cycle(1)
}

// Prev activates the tab before the active one, wrapping around
func (m *Manager) Prev() id.TabID {
	return m.cycle(-1)
}

func (m *Manager) cycle(delta int) id.TabID {
	if len(m.order) == 0 {
		return 0
	}
	idx := m.index(m.active)
	if idx < 0 {
		idx = 0
	}
	m.active = m.order[(idx+delta+len(m.order))%len(m.order)]
	return m.active
}

// Active returns the active tab, nil when no tab is open
func (m *Manager) Active() *Tab {
	return m.tabs[m.active]
}

// Get returns an open tab
func (m *Manager) Get(tabID id.TabID) (*Tab, bool) {
	tab, ok := m.tabs[tabID]
	return tab, ok
}

// Tabs returns the open tabs in creation order
func (m *Manager) Tabs() []*Tab {
	out := make([]*Tab, 0, len(m.order))
	for _, tabID := range m.order {
		out = append(out, m.tabs[tabID])
	}
	return out
}

// Len returns the number of open tabs
func (m *Manager) Len() int { return len(m.order) }

// PaneCount returns the number of panes across all tabs
func (m *Manager) PaneCount() int { return len(m.panes) }

// Split divides pane in two. The new pane starts in the split pane's working
// directory, gets its own session and receives focus.
func (m *Manager) Split(ctx context.Context, tabID id.TabID, paneID id.PaneID, o layout.Orientation) (*Pane, error) {
	tab, err := m.tab(tabID)
	if err != nil {
		return nil, err
	}
	if _, err := m.paneIn(tab, paneID); err != nil {
		return nil, err
	}

	sid, err := m.sessions.Create(ctx, routing.CreateOptions{Dir: m.paneCwd(paneID)})
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", paneID, err)
	}

	added, err := tab.Tree.Split(paneID, o)
	if err != nil {
		m.sessions.Destroy(sid)
		return nil, err
	}

	p := &Pane{ID: added, Session: sid, Tab: tabID}
	m.bind(p)
	tab.Focused = added

	m.log.Debug("Pane split",
		zap.Uint64("tab", uint64(tabID)),
		zap.Uint64("from", uint64(paneID)),
		zap.Uint64("pane", uint64(added)),
		zap.Stringer("orientation", o))
	return p, nil
}

// ClosePane removes a pane and destroys its session. When the focused pane
// closes, focus moves to the returned fallback. Closing a tab's only pane
// returns layout.ErrLastPane; the caller closes the tab instead.
func (m *Manager) ClosePane(tabID id.TabID, paneID id.PaneID) (id.PaneID, error) {
	tab, err := m.tab(tabID)
	if err != nil {
		return 0, err
	}
	p, err := m.paneIn(tab, paneID)
	if err != nil {
		return 0, err
	}

	fallback, err := tab.Tree.Close(paneID)
	if err != nil {
		return 0, err
	}

	m.sessions.Destroy(p.Session)
	m.unbind(p)
	if tab.Focused == paneID {
		tab.Focused = fallback
	}
	return fallback, nil
}

// Focus sets the focused pane of a tab
func (m *Manager) Focus(tabID id.TabID, paneID id.PaneID) error {
	tab, err := m.tab(tabID)
	if err != nil {
		return err
	}
	if _, err := m.paneIn(tab, paneID); err != nil {
		return err
	}
	tab.Focused = paneID
	return nil
}

// FindSession returns the pane bound to a session
func (m *Manager) FindSession(sid id.SessionID) (*Pane, bool) {
	p, ok := m.bySession[sid]
	return p, ok
}

// Pane returns a pane by id
func (m *Manager) Pane(paneID id.PaneID) (*Pane, bool) {
	p, ok := m.panes[paneID]
	return p, ok
}

func (m *Manager) paneCwd(paneID id.PaneID) string {
	p, ok := m.panes[paneID]
	if !ok {
		return ""
	}
	dir, ok := m.sessions.Cwd(p.Session)
	if !ok {
		return ""
	}
	return dir
}

func (m *Manager) tab(tabID id.TabID) (*Tab, error) {
	tab, ok := m.tabs[tabID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, tabID)
	}
	return tab, nil
}

func (m *Manager) paneIn(tab *Tab, paneID id.PaneID) (*Pane, error) {
	p, ok := m.panes[paneID]
	if !ok || p.Tab != tab.ID {
		return nil, fmt.Errorf("%w: %s in %s", ErrPaneNotFound, paneID, tab.ID)
	}
	return p, nil
}

func (m *Manager) index(tabID id.TabID) int {
	for i, t := range m.order {
		if t == tabID {
			return i
		}
	}
	return -1
}

func (m *Manager) bind(p *Pane) {
	m.panes[p.ID] = p
	m.bySession[p.Session] = p
}

func (m *Manager) unbind(p *Pane) {
	delete(m.panes, p.ID)
	delete(m.bySession, p.Session)
}
