package ws

import (
	"testing"

	"github.com/GriffinCanCode/termplex/internal/mux"
	"github.com/GriffinCanCode/termplex/internal/shared/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewStateCellSizeFallback(t *testing.T) {
	v := NewViewState()

	_, _, ok := v.CellSize(1)
	assert.False(t, ok, "no metrics reported yet")

	v.SetCellSize(0, 8, 16)
	w, h, ok := v.CellSize(1)
	assert.True(t, ok)
	assert.Equal(t, [2]float64{8, 16}, [2]float64{w, h})

	v.SetCellSize(2, 10, 20)
	w, h, _ = v.CellSize(2)
	assert.Equal(t, [2]float64{10, 20}, [2]float64{w, h}, "per-pane metrics win over the default")
}

func TestViewStateBoxesAreCopied(t *testing.T) {
	v := NewViewState()
	boxes := []geom.PaneBox{{Pane: 1, Rect: geom.Rect{W: 100, H: 100}}}

	v.SetBoxes(1, boxes)
	boxes[0].Pane = 9

	got := v.BoundingBoxes(1)
	assert.Len(t, got, 1)
	assert.EqualValues(t, 1, got[0].Pane)
	assert.Empty(t, v.BoundingBoxes(2))
}

func TestViewStateForgetsClosedState(t *testing.T) {
	v := NewViewState()
	v.SetCellSize(3, 8, 16)
	v.SetBoxes(1, []geom.PaneBox{{Pane: 3}, {Pane: 4}})

	v.Observe(mux.Event{Type: mux.EventPaneClosed, Tab: 1, Pane: 3})
	_, _, ok := v.CellSize(3)
	assert.False(t, ok)
	boxes := v.BoundingBoxes(1)
	require.Len(t, boxes, 1)
	assert.EqualValues(t, 4, boxes[0].Pane)

	v.Observe(mux.Event{Type: mux.EventTabClosed, Tab: 1})
	assert.Empty(t, v.BoundingBoxes(1))
}
