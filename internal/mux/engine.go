package mux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/termplex/internal/focus"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termplex/internal/layout"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/shared/geom"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"github.com/GriffinCanCode/termplex/internal/tabs"
	"go.uber.org/zap"
)

// DefaultExitGrace is how long an exited pane stays visible before closing
const DefaultExitGrace = 1500 * time.Millisecond

// defaultBounds is used for tabs whose view has not reported a size yet
var defaultBounds = geom.Rect{W: 1280, H: 800}

// ErrClosed is returned by operations after Shutdown
var ErrClosed = errors.New("engine is shut down")

// Geometry reports pane boxes as the view draws them
type Geometry interface {
	BoundingBoxes(tab id.TabID) []geom.PaneBox
}

// Timer is a pending exit-grace close
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d
type AfterFunc func(d time.Duration, f func()) Timer

// Options configures an Engine
type Options struct {
	Sessions tabs.Sessions
	Router   *routing.Router
	Registry *id.Registry
	// Geometry and Cells are the view collaborators; both may be nil
	Geometry    Geometry
	Cells       layout.CellMetrics
	Navigator   focus.Navigator
	MinPaneSize float64
	ExitGrace   time.Duration
	// AfterFunc defaults to time.AfterFunc
	AfterFunc AfterFunc
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Engine serializes UI actions over the tab manager and session backend
type Engine struct {
	mu sync.Mutex

	tabs      *tabs.Manager
	router    *routing.Router
	geometry  Geometry
	cells     layout.CellMetrics
	nav       focus.Navigator
	grace     time.Duration
	afterFunc AfterFunc
	log       *logging.Logger
	metrics   *monitoring.Metrics

	bounds    map[id.TabID]geom.Rect
	pending   map[id.PaneID]Timer
	listeners []listenerEntry
	nextID    uint64

	unsubscribe func()
	closed      bool
}

// New creates an engine and subscribes it to the router's events
func New(opts Options) *Engine {
	if opts.ExitGrace <= 0 {
		opts.ExitGrace = DefaultExitGrace
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.Navigator == (focus.Navigator{}) {
		opts.Navigator = focus.NewNavigator()
	}
	if opts.MinPaneSize <= 0 {
		opts.MinPaneSize = layout.DefaultMinPaneSize
	}
	log := logging.OrNop(opts.Logger).Named("mux")

	e := &Engine{
		tabs:      tabs.NewManager(opts.Sessions, opts.Registry, log, layout.WithMinPaneSize(opts.MinPaneSize)),
		router:    opts.Router,
		geometry:  opts.Geometry,
		cells:     opts.Cells,
		nav:       opts.Navigator,
		grace:     opts.ExitGrace,
		afterFunc: opts.AfterFunc,
		log:       log,
		metrics:   opts.Metrics,
		bounds:    make(map[id.TabID]geom.Rect),
		pending:   make(map[id.PaneID]Timer),
	}
	e.unsubscribe = opts.Router.Subscribe(e.onEvent)
	return e
}

// Subscribe registers a UI event listener; the returned func removes it
func (e *Engine) Subscribe(fn Listener) func() {
	e.mu.Lock()
	e.nextID++
	lid := e.nextID
	e.listeners = append(e.listeners, listenerEntry{id: lid, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == lid {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// emit must be called with e.mu held
func (e *Engine) emit(ev Event) {
	for _, l := range e.listeners {
		l.fn(ev)
	}
}

// ============================================================================
// Routed session events
// ============================================================================

func (e *Engine) onEvent(ev routing.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	p, ok := e.tabs.FindSession(ev.Session)
	if !ok {
		e.metrics.StaleEventDropped()
		return
	}

	switch ev.Type {
	case routing.EventData:
		e.emit(Event{Type: EventPaneData, Tab: p.Tab, Pane: p.ID, Session: p.Session, Data: ev.Data})

	case routing.EventExit:
		code := ev.Code
		e.emit(Event{Type: EventPaneExited, Tab: p.Tab, Pane: p.ID, Session: p.Session, Code: &code})
		e.scheduleExitClose(p)
	}
}

// scheduleExitClose applies the exit policy. Must be called with e.mu held.
func (e *Engine) scheduleExitClose(p *tabs.Pane) {
	tab, ok := e.tabs.Get(p.Tab)
	if !ok {
		return
	}
	if tab.Tree.Len() <= 1 {
		e.log.Info("Last pane exited, keeping it open",
			zap.Uint64("tab", uint64(p.Tab)),
			zap.Uint64("pane", uint64(p.ID)))
		return
	}
	if _, scheduled := e.pending[p.ID]; scheduled {
		return
	}

	paneID, sid := p.ID, p.Session
	e.pending[paneID] = e.afterFunc(e.grace, func() {
		e.expire(paneID, sid)
	})
}

// expire closes an exited pane once its grace period is over
func (e *Engine) expire(paneID id.PaneID, sid id.SessionID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.pending, paneID)
	if e.closed {
		return
	}

	p, ok := e.tabs.Pane(paneID)
	if !ok || p.Session != sid {
		return
	}
	tab, ok := e.tabs.Get(p.Tab)
	if !ok || tab.Tree.Len() <= 1 {
		return
	}

	if err := e.closePane(p.Tab, paneID); err != nil {
		e.log.Warn("Failed to close exited pane", zap.Uint64("pane", uint64(paneID)), zap.Error(err))
	}
}

func (e *Engine) cancelPending(paneID id.PaneID) {
	if t, ok := e.pending[paneID]; ok {
		t.Stop()
		delete(e.pending, paneID)
	}
}

// ============================================================================
// Tabs
// ============================================================================

// NewTab opens a tab with one pane and activates it
func (e *Engine) NewTab(ctx context.Context) (id.TabID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, ErrClosed
	}

	tabID, err := e.tabs.Create(ctx)
	if err != nil {
		return 0, err
	}
	tab, _ := e.tabs.Get(tabID)
	p, _ := e.tabs.Pane(tab.Focused)

	e.emit(Event{Type: EventTabCreated, Tab: tabID})
	e.emit(Event{Type: EventPaneCreated, Tab: tabID, Pane: p.ID, Session: p.Session})
	e.emit(Event{Type: EventTabSwitched, Tab: tabID})
	e.emit(Event{Type: EventFocusChanged, Tab: tabID, Pane: p.ID})
	e.regrid(tab)
	e.recordLayout()
	return tabID, nil
}

// CloseTab destroys every session in the tab. Closing the last tab emits
// window-close, tears nothing down and reports windowClose.
func (e *Engine) CloseTab(tabID id.TabID) (windowClose bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeTab(tabID)
}

func (e *Engine) closeTab(tabID id.TabID) (bool, error) {
	tab, ok := e.tabs.Get(tabID)
	if !ok {
		return false, fmt.Errorf("%w: %s", tabs.ErrTabNotFound, tabID)
	}
	panes := tab.Tree.Panes()
	wasActive := e.tabs.Active() == tab

	windowClose, err := e.tabs.Close(tabID)
	if err != nil {
		return false, err
	}
	if windowClose {
		e.emit(Event{Type: EventWindowClose, Tab: tabID})
		return true, nil
	}

	for _, paneID := range panes {
		e.cancelPending(paneID)
		e.emit(Event{Type: EventPaneClosed, Tab: tabID, Pane: paneID})
	}
	delete(e.bounds, tabID)
	e.emit(Event{Type: EventTabClosed, Tab: tabID})

	if active := e.tabs.Active(); wasActive && active != nil {
		e.emit(Event{Type: EventTabSwitched, Tab: active.ID})
		e.emit(Event{Type: EventFocusChanged, Tab: active.ID, Pane: active.Focused})
	}
	e.recordLayout()
	return false, nil
}

// SwitchTab activates a tab
func (e *Engine) SwitchTab(tabID id.TabID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tabs.Switch(tabID); err != nil {
		return err
	}
	e.announceActive()
	return nil
}

// NextTab activates the next tab in creation order, wrapping around
func (e *Engine) NextTab() id.TabID {
	e.mu.Lock()
	defer e.mu.Unlock()

	tabID := e.tabs.Next()
	e.announceActive()
	return tabID
}

// PrevTab activates the previous tab in creation order, wrapping around
func (e *Engine) PrevTab() id.TabID {
	e.mu.Lock()
	defer e.mu.Unlock()

	tabID := e.tabs.Prev()
	e.announceActive()
	return tabID
}

func (e *Engine) announceActive() {
	if tab := e.tabs.Active(); tab != nil {
		e.emit(Event{Type: EventTabSwitched, Tab: tab.ID})
		e.emit(Event{Type: EventFocusChanged, Tab: tab.ID, Pane: tab.Focused})
	}
}

// ============================================================================
// Panes
// ============================================================================

// Split divides the focused pane of the active tab
func (e *Engine) Split(ctx context.Context, o layout.Orientation) (id.PaneID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tab := e.tabs.Active()
	if tab == nil {
		return 0, fmt.Errorf("%w: no active tab", tabs.ErrTabNotFound)
	}
	return e.splitPane(ctx, tab.ID, tab.Focused, o)
}

// SplitPane divides the given pane
func (e *Engine) SplitPane(ctx context.Context, paneID id.PaneID, o layout.Orientation) (id.PaneID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.tabs.Pane(paneID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", tabs.ErrPaneNotFound, paneID)
	}
	return e.splitPane(ctx, p.Tab, paneID, o)
}

func (e *Engine) splitPane(ctx context.Context, tabID id.TabID, paneID id.PaneID, o layout.Orientation) (id.PaneID, error) {
	if e.closed {
		return 0, ErrClosed
	}

	p, err := e.tabs.Split(ctx, tabID, paneID, o)
	if err != nil {
		return 0, err
	}

	e.emit(Event{Type: EventPaneCreated, Tab: tabID, Pane: p.ID, Session: p.Session})
	e.emit(Event{Type: EventFocusChanged, Tab: tabID, Pane: p.ID})
	if tab, ok := e.tabs.Get(tabID); ok {
		e.regrid(tab)
	}
	e.recordLayout()
	return p.ID, nil
}

// ClosePane closes a pane. Closing the last pane of a tab closes the tab.
func (e *Engine) ClosePane(paneID id.PaneID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.tabs.Pane(paneID)
	if !ok {
		return fmt.Errorf("%w: %s", tabs.ErrPaneNotFound, paneID)
	}
	return e.closePane(p.Tab, paneID)
}

func (e *Engine) closePane(tabID id.TabID, paneID id.PaneID) error {
	tab, ok := e.tabs.Get(tabID)
	if !ok {
		return fmt.Errorf("%w: %s", tabs.ErrTabNotFound, tabID)
	}
	wasFocused := tab.Focused == paneID

	fallback, err := e.tabs.ClosePane(tabID, paneID)
	if errors.Is(err, layout.ErrLastPane) {
		_, err = e.closeTab(tabID)
		return err
	}
	if err != nil {
		return err
	}

	e.cancelPending(paneID)
	e.emit(Event{Type: EventPaneClosed, Tab: tabID, Pane: paneID})
	if wasFocused {
		e.emit(Event{Type: EventFocusChanged, Tab: tabID, Pane: fallback})
	}
	e.regrid(tab)
	e.recordLayout()
	return nil
}

// Input forwards bytes typed into a pane to its session
func (e *Engine) Input(ctx context.Context, paneID id.PaneID, data []byte) error {
	e.mu.Lock()
	p, ok := e.tabs.Pane(paneID)
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", tabs.ErrPaneNotFound, paneID)
	}
	_, err := e.router.Handle(ctx, routing.Command{Type: routing.CommandInput, Session: p.Session, Data: data})
	return err
}

// ============================================================================
// Focus
// ============================================================================

// MoveFocus moves focus in the active tab to the nearest pane in dir. When no
// pane lies in that direction focus is unchanged and moved is false.
func (e *Engine) MoveFocus(dir focus.Direction) (paneID id.PaneID, moved bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tab := e.tabs.Active()
	if tab == nil {
		return 0, false, fmt.Errorf("%w: no active tab", tabs.ErrTabNotFound)
	}

	boxes := e.boxes(tab)
	var from geom.PaneBox
	found := false
	for _, b := range boxes {
		if b.Pane == tab.Focused {
			from, found = b, true
			break
		}
	}
	if !found {
		return tab.Focused, false, nil
	}

	target, ok := e.nav.Nearest(dir, from, boxes)
	if !ok || !tab.Tree.Contains(target) {
		return tab.Focused, false, nil
	}
	return target, true, e.focus(tab, target)
}

// FocusNext focuses the next pane of the active tab in layout order
func (e *Engine) FocusNext() (id.PaneID, error) {
	return e.cycleFocus(focus.Next)
}

// FocusPrev focuses the previous pane of the active tab in layout order
func (e *Engine) FocusPrev() (id.PaneID, error) {
	return e.cycleFocus(focus.Prev)
}

func (e *Engine) cycleFocus(step func([]id.PaneID, id.PaneID) (id.PaneID, bool)) (id.PaneID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tab := e.tabs.Active()
	if tab == nil {
		return 0, fmt.Errorf("%w: no active tab", tabs.ErrTabNotFound)
	}
	target, ok := step(tab.Tree.Panes(), tab.Focused)
	if !ok {
		return tab.Focused, nil
	}
	return target, e.focus(tab, target)
}

// FocusPane focuses a pane and activates its tab
func (e *Engine) FocusPane(paneID id.PaneID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.tabs.Pane(paneID)
	if !ok {
		return fmt.Errorf("%w: %s", tabs.ErrPaneNotFound, paneID)
	}
	if active := e.tabs.Active(); active == nil || active.ID != p.Tab {
		if err := e.tabs.Switch(p.Tab); err != nil {
			return err
		}
		e.emit(Event{Type: EventTabSwitched, Tab: p.Tab})
	}
	tab, _ := e.tabs.Get(p.Tab)
	return e.focus(tab, paneID)
}

func (e *Engine) focus(tab *tabs.Tab, paneID id.PaneID) error {
	if tab.Focused == paneID {
		return nil
	}
	if err := e.tabs.Focus(tab.ID, paneID); err != nil {
		return err
	}
	e.emit(Event{Type: EventFocusChanged, Tab: tab.ID, Pane: paneID})
	return nil
}

// boxes returns the view's boxes for the panes still in tab. When the view
// has not reported every live pane the computed layout is used instead.
func (e *Engine) boxes(tab *tabs.Tab) []geom.PaneBox {
	if e.geometry != nil {
		reported := e.geometry.BoundingBoxes(tab.ID)
		live := make([]geom.PaneBox, 0, len(reported))
		for _, b := range reported {
			if tab.Tree.Contains(b.Pane) {
				live = append(live, b)
			}
		}
		if len(live) == tab.Tree.Len() {
			return live
		}
	}
	return tab.Tree.Layout(e.boundsOf(tab.ID))
}

func (e *Engine) boundsOf(tabID id.TabID) geom.Rect {
	if b, ok := e.bounds[tabID]; ok && !b.Empty() {
		return b
	}
	return defaultBounds
}

// ============================================================================
// Resize
// ============================================================================

// ResizeSplit moves the divider of a split node by delta and resizes every
// session under it
func (e *Engine) ResizeSplit(node id.NodeID, delta float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, tab := range e.tabs.Tabs() {
		if _, ok := tab.Tree.Node(node); !ok {
			continue
		}
		grids, err := tab.Tree.Resize(node, delta, e.boundsOf(tab.ID), e.cells)
		if err != nil {
			return err
		}
		e.applyGrids(grids)
		return nil
	}
	return fmt.Errorf("%w: %s is not in any tab", layout.ErrInvariant, node)
}

// ResizeTab records the pixel bounds of a tab's view and resizes every
// session in it to match
func (e *Engine) ResizeTab(tabID id.TabID, bounds geom.Rect) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tab, ok := e.tabs.Get(tabID)
	if !ok {
		return fmt.Errorf("%w: %s", tabs.ErrTabNotFound, tabID)
	}
	e.bounds[tabID] = bounds
	e.regrid(tab)
	return nil
}

// regrid pushes the grid of every pane in tab to its session
func (e *Engine) regrid(tab *tabs.Tab) {
	e.applyGrids(tab.Tree.Grids(e.boundsOf(tab.ID), e.cells))
}

func (e *Engine) applyGrids(grids []layout.Grid) {
	for _, g := range grids {
		p, ok := e.tabs.Pane(g.Pane)
		if !ok {
			continue
		}
		cmd := routing.Command{Type: routing.CommandResize, Session: p.Session, Cols: g.Cols, Rows: g.Rows}
		if _, err := e.router.Handle(context.Background(), cmd); err != nil {
			e.log.Warn("Failed to resize session",
				zap.Uint64("pane", uint64(g.Pane)),
				zap.Uint64("session", uint64(p.Session)),
				zap.Error(err))
		}
	}
}

func (e *Engine) recordLayout() {
	e.metrics.SetLayout(e.tabs.Len(), e.tabs.PaneCount())
}

// ============================================================================
// Lifecycle
// ============================================================================

// Shutdown stops pending exit timers and detaches from the router. Sessions
// are owned by the session manager and shut down there.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for paneID := range e.pending {
		e.cancelPending(paneID)
	}
	e.unsubscribe()
}
