package layout

import (
	"math"

	"github.com/GriffinCanCode/termplex/internal/shared/geom"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

// minRatio keeps ratios strictly inside (0,1) when no pixel minimum applies
const minRatio = 0.01

// CellMetrics reports the pixel size of one terminal cell in a pane's view
type CellMetrics interface {
	CellSize(pane id.PaneID) (colWidth, rowHeight float64, ok bool)
}

// CellMetricsFunc adapts a function to CellMetrics
type CellMetricsFunc func(pane id.PaneID) (float64, float64, bool)

// CellSize calls f
func (f CellMetricsFunc) CellSize(pane id.PaneID) (float64, float64, bool) { return f(pane) }

// Grid is the terminal size, in cells, that a pane's box holds
type Grid struct {
	Pane id.PaneID `json:"pane"`
	Cols uint16    `json:"cols"`
	Rows uint16    `json:"rows"`
}

// Layout returns the pixel box of every pane within bounds, depth-first
func (t *Tree) Layout(bounds geom.Rect) []geom.PaneBox {
	boxes := make([]geom.PaneBox, 0, len(t.leaves))
	walkRects(t.root, bounds, func(n *Node, r geom.Rect) {
		if n.Kind == KindPane {
			boxes = append(boxes, geom.PaneBox{Pane: n.Pane, Rect: r})
		}
	})
	return boxes
}

// Grids returns the cell grid of every pane within bounds
func (t *Tree) Grids(bounds geom.Rect, metrics CellMetrics) []Grid {
	return gridsUnder(t.root, bounds, metrics)
}

// Resize moves the divider of split node by delta (a ratio change), clamped
// so neither side becomes narrower than the minimum pane size along the split
// axis. When the split cannot give both sides the minimum the ratio snaps to
// 0.5. It returns the new grid of every pane under the split.
func (t *Tree) Resize(node id.NodeID, delta float64, bounds geom.Rect, metrics CellMetrics) ([]Grid, error) {
	split, ok := t.splits[node]
	if !ok {
		return nil, violation(&InvariantError{Op: "resize", Tab: t.tab, Node: node, Reason: "split not in tree"})
	}

	rect, found := t.rectOf(split, bounds)
	if !found {
		return nil, violation(&InvariantError{Op: "resize", Tab: t.tab, Node: node, Reason: "split unreachable from root"})
	}

	extent := rect.W
	if split.Orientation == Horizontal {
		extent = rect.H
	}
	split.Ratio = clampRatio(split.Ratio+delta, extent, t.minPaneSize)

	return gridsUnder(split, rect, metrics), nil
}

func clampRatio(ratio, extent, minSize float64) float64 {
	if extent <= 0 || 2*minSize > extent {
		return 0.5
	}
	lo := math.Max(minSize/extent, minRatio)
	return math.Min(math.Max(ratio, lo), 1-lo)
}

func (t *Tree) rectOf(target *Node, bounds geom.Rect) (geom.Rect, bool) {
	var (
		out   geom.Rect
		found bool
	)
	walkRects(t.root, bounds, func(n *Node, r geom.Rect) {
		if n == target {
			out, found = r, true
		}
	})
	return out, found
}

// divide splits r between a split's two children
func divide(n *Node, r geom.Rect) (geom.Rect, geom.Rect) {
	if n.Orientation == Vertical {
		w := r.W * n.Ratio
		return geom.Rect{X: r.X, Y: r.Y, W: w, H: r.H},
			geom.Rect{X: r.X + w, Y: r.Y, W: r.W - w, H: r.H}
	}
	h := r.H * n.Ratio
	return geom.Rect{X: r.X, Y: r.Y, W: r.W, H: h},
		geom.Rect{X: r.X, Y: r.Y + h, W: r.W, H: r.H - h}
}

func walkRects(n *Node, r geom.Rect, fn func(*Node, geom.Rect)) {
	fn(n, r)
	if n.Kind == KindSplit {
		first, second := divide(n, r)
		walkRects(n.First, first, fn)
		walkRects(n.Second, second, fn)
	}
}

func gridsUnder(n *Node, r geom.Rect, metrics CellMetrics) []Grid {
	if metrics == nil {
		return nil
	}
	var grids []Grid
	walkRects(n, r, func(leaf *Node, box geom.Rect) {
		if leaf.Kind != KindPane {
			return
		}
		colWidth, rowHeight, ok := metrics.CellSize(leaf.Pane)
		if !ok || colWidth <= 0 || rowHeight <= 0 {
			return
		}
		grids = append(grids, Grid{
			Pane: leaf.Pane,
			Cols: cells(box.W, colWidth),
			Rows: cells(box.H, rowHeight),
		})
	})
	return grids
}

func cells(extent, cell float64) uint16 {
	n := math.Floor(extent / cell)
	switch {
	case n < 1:
		return 1
	case n > math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(n)
	}
}
