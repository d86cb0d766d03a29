// Package focus picks the pane that receives focus when the user moves it.
//
// Directional movement scores every other pane by the distance between box
// centers: the distance along the requested axis plus a weighted distance
// across it. Candidates whose centers are not past a small dead zone in the
// requested direction are ignored.
package focus

import (
	"fmt"
	"math"
	"strings"

	"github.com/GriffinCanCode/termplex/internal/shared/geom"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

const (
	DefaultDeadZone    = 10.0
	DefaultCrossWeight = 0.5
)

// Direction is a requested focus movement
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// ParseDirection accepts left, right, up and down
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Navigator holds the scoring constants
type Navigator struct {
	DeadZone    float64
	CrossWeight float64
}

// NewNavigator creates a navigator with the default constants
func NewNavigator() Navigator {
	return Navigator{DeadZone: DefaultDeadZone, CrossWeight: DefaultCrossWeight}
}

// Nearest returns the best candidate in direction dir from the focused box.
// Ties go to the candidate encountered first. ok is false when no candidate
// lies in that direction, in which case focus should stay where it is.
func (n Navigator) Nearest(dir Direction, from geom.PaneBox, candidates []geom.PaneBox) (id.PaneID, bool) {
	fx, fy := from.Center()

	var (
		best      id.PaneID
		bestScore = math.Inf(1)
		found     bool
	)
	for _, c := range candidates {
		if c.Pane == from.Pane {
			continue
		}
		cx, cy := c.Center()
		dx, dy := cx-fx, cy-fy

		var primary, cross float64
		switch dir {
		case Left:
			primary, cross = -dx, dy
		case Right:
			primary, cross = dx, dy
		case Up:
			primary, cross = -dy, dx
		case Down:
			primary, cross = dy, dx
		default:
			return 0, false
		}

		if primary <= n.DeadZone {
			continue
		}

		score := primary + n.CrossWeight*math.Abs(cross)
		if score < bestScore {
			best, bestScore, found = c.Pane, score, true
		}
	}
	return best, found
}

// Next returns the pane after current in order, wrapping around.
// An unknown current yields the first pane.
func Next(order []id.PaneID, current id.PaneID) (id.PaneID, bool) {
	return step(order, current, 1)
}

// Prev returns the pane before current in order, wrapping around.
// An unknown current yields the first pane.
func Prev(order []id.PaneID, current id.PaneID) (id.PaneID, bool) {
	return step(order, current, -1)
}

func step(order []id.PaneID, current id.PaneID, delta int) (id.PaneID, bool) {
	if len(order) == 0 {
		return 0, false
	}
	for i, p := range order {
		if p == current {
			return order[(i+delta+len(order))%len(order)], true
		}
	}
	return order[0], true
}
