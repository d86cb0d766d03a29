package ws

import (
	"sync"

	"github.com/GriffinCanCode/termplex/internal/mux"
	"github.com/GriffinCanCode/termplex/internal/shared/geom"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

type cellSize struct {
	w, h float64
}

// ViewState stores the geometry views report. It satisfies mux.Geometry and
// layout.CellMetrics.
type ViewState struct {
	mu          sync.RWMutex
	boxes       map[id.TabID][]geom.PaneBox
	cells       map[id.PaneID]cellSize
	defaultCell *cellSize
}

// NewViewState creates an empty view state
func NewViewState() *ViewState {
	return &ViewState{
		boxes: make(map[id.TabID][]geom.PaneBox),
		cells: make(map[id.PaneID]cellSize),
	}
}

// SetBoxes replaces the pane boxes of a tab
func (v *ViewState) SetBoxes(tab id.TabID, boxes []geom.PaneBox) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.boxes[tab] = append([]geom.PaneBox(nil), boxes...)
}

// SetCellSize records the cell size of a pane. A zero pane sets the size used
// for panes that have not reported their own.
func (v *ViewState) SetCellSize(pane id.PaneID, colWidth, rowHeight float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	size := cellSize{w: colWidth, h: rowHeight}
	if pane.IsZero() {
		v.defaultCell = &size
		return
	}
	v.cells[pane] = size
}

// BoundingBoxes implements mux.Geometry
func (v *ViewState) BoundingBoxes(tab id.TabID) []geom.PaneBox {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]geom.PaneBox(nil), v.boxes[tab]...)
}

// CellSize implements layout.CellMetrics
func (v *ViewState) CellSize(pane id.PaneID) (float64, float64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if size, ok := v.cells[pane]; ok {
		return size.w, size.h, true
	}
	if v.defaultCell != nil {
		return v.defaultCell.w, v.defaultCell.h, true
	}
	return 0, 0, false
}

// Observe forgets state belonging to closed panes and tabs
func (v *ViewState) Observe(ev mux.Event) {
	switch ev.Type {
	case mux.EventPaneClosed:
		v.mu.Lock()
		delete(v.cells, ev.Pane)
		if boxes, ok := v.boxes[ev.Tab]; ok {
			kept := boxes[:0]
			for _, b := range boxes {
				if b.Pane != ev.Pane {
					kept = append(kept, b)
				}
			}
			v.boxes[ev.Tab] = kept
		}
		v.mu.Unlock()
	case mux.EventTabClosed:
		v.mu.Lock()
		delete(v.boxes, ev.Tab)
		v.mu.Unlock()
	}
}
