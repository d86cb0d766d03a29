// Package geom holds the pixel geometry shared by layout and focus navigation.
package geom

import "github.com/GriffinCanCode/termplex/internal/shared/id"

// Rect is an axis-aligned rectangle in view units (pixels). Y grows downward.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the center point of the rectangle.
func (r Rect) Center() (cx, cy float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// PaneBox is a pane's bounding box as reported by the view.
type PaneBox struct {
	Pane id.PaneID `json:"pane"`
	Rect
}
