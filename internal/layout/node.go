package layout

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

// Kind tags a Node as a pane leaf or a split
type Kind int

const (
	KindPane Kind = iota
	KindSplit
)

func (k Kind) String() string {
	switch k {
	case KindPane:
		return "pane"
	case KindSplit:
		return "split"
	default:
		return "unknown"
	}
}

// Orientation is the direction of a split's divider.
// Vertical places children side by side, Horizontal stacks them.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

func (o Orientation) String() string {
	switch o {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return "unknown"
	}
}

// ParseOrientation accepts "vertical"/"v" and "horizontal"/"h"
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical", "v":
		return Vertical, nil
	case "horizontal", "h":
		return Horizontal, nil
	default:
		return 0, fmt.Errorf("unknown orientation %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Orientation) UnmarshalText(text []byte) error {
	parsed, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Node is a pane leaf or a split. Fields not meaningful for the Kind are zero.
type Node struct {
	Kind Kind

	// Pane leaves
	Pane id.PaneID

	// Splits
	ID          id.NodeID
	Orientation Orientation
	Ratio       float64
	First       *Node
	Second      *Node

	parent *Node
}

// Parent returns the enclosing split, nil for the root
func (n *Node) Parent() *Node { return n.parent }

// firstLeaf returns the depth-first first pane under n
func firstLeaf(n *Node) *Node {
	for n.Kind == KindSplit {
		n = n.First
	}
	return n
}

// collectLeaves appends the panes under n in depth-first order
func collectLeaves(n *Node, out []id.PaneID) []id.PaneID {
	switch n.Kind {
	case KindPane:
		return append(out, n.Pane)
	case KindSplit:
		out = collectLeaves(n.First, out)
		return collectLeaves(n.Second, out)
	}
	return out
}

func (n *Node) shape(b *strings.Builder) {
	switch n.Kind {
	case KindPane:
		fmt.Fprintf(b, "%d", uint64(n.Pane))
	case KindSplit:
		if n.Orientation == Vertical {
			b.WriteString("V(")
		} else {
			b.WriteString("H(")
		}
		n.First.shape(b)
		b.WriteByte(',')
		n.Second.shape(b)
		b.WriteByte(')')
	}
}
