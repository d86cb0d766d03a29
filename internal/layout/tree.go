package layout

import (
	"strings"

	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

// DefaultMinPaneSize is the smallest extent, in pixels, a resize leaves either
// side of a split
const DefaultMinPaneSize = 60.0

// Allocator hands out ids for new panes and splits. *id.Registry satisfies it.
type Allocator interface {
	NextPane() id.PaneID
	NextNode() id.NodeID
}

// Option configures a Tree
type Option func(*Tree)

// WithMinPaneSize sets the minimum pane extent honored by Resize
func WithMinPaneSize(px float64) Option {
	return func(t *Tree) {
		if px >= 0 {
			t.minPaneSize = px
		}
	}
}

// Tree is the layout of one tab. It is not safe for concurrent use.
type Tree struct {
	tab         id.TabID
	root        *Node
	leaves      map[id.PaneID]*Node
	splits      map[id.NodeID]*Node
	alloc       Allocator
	minPaneSize float64
}

// New creates a tree holding a single pane
func New(tab id.TabID, first id.PaneID, alloc Allocator, opts ...Option) *Tree {
	leaf := &Node{Kind: KindPane, Pane: first}
	t := &Tree{
		tab:         tab,
		root:        leaf,
		leaves:      map[id.PaneID]*Node{first: leaf},
		splits:      make(map[id.NodeID]*Node),
		alloc:       alloc,
		minPaneSize: DefaultMinPaneSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tab returns the tab this tree belongs to
func (t *Tree) Tab() id.TabID { return t.tab }

// Root returns the root node. Callers must not mutate it.
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of panes
func (t *Tree) Len() int { return len(t.leaves) }

// Contains reports whether pane is a leaf of this tree
func (t *Tree) Contains(pane id.PaneID) bool {
	_, ok := t.leaves[pane]
	return ok
}

// Panes returns all panes in depth-first order
func (t *Tree) Panes() []id.PaneID {
	return collectLeaves(t.root, make([]id.PaneID, 0, len(t.leaves)))
}

// First returns the depth-first first pane
func (t *Tree) First() id.PaneID {
	return firstLeaf(t.root).Pane
}

// Split replaces the leaf holding pane with a split whose first child is the
// original pane and second child a new pane. The new pane's id is returned.
func (t *Tree) Split(pane id.PaneID, o Orientation) (id.PaneID, error) {
	leaf, ok := t.leaves[pane]
	if !ok {
		return 0, violation(&InvariantError{Op: "split", Tab: t.tab, Pane: pane, Reason: "pane not in tree"})
	}

	added := &Node{Kind: KindPane, Pane: t.alloc.NextPane()}
	split := &Node{
		Kind:        KindSplit,
		ID:          t.alloc.NextNode(),
		Orientation: o,
		Ratio:       0.5,
	}

	t.replace(leaf, split)
	split.First, split.Second = leaf, added
	leaf.parent, added.parent = split, split

	t.leaves[added.Pane] = added
	t.splits[split.ID] = split
	return added.Pane, nil
}

// Close removes pane and collapses its parent split into the grandparent's
// slot. It returns the first pane of the surviving subtree as the focus
// fallback. Closing the only pane returns ErrLastPane.
func (t *Tree) Close(pane id.PaneID) (id.PaneID, error) {
	leaf, ok := t.leaves[pane]
	if !ok {
		return 0, violation(&InvariantError{Op: "close", Tab: t.tab, Pane: pane, Reason: "pane not in tree"})
	}

	parent := leaf.parent
	if parent == nil {
		return 0, ErrLastPane
	}

	survivor := parent.First
	if survivor == leaf {
		survivor = parent.Second
	}

	t.replace(parent, survivor)
	parent.First, parent.Second, parent.parent = nil, nil, nil
	leaf.parent = nil

	delete(t.leaves, pane)
	delete(t.splits, parent.ID)
	return firstLeaf(survivor).Pane, nil
}

// replace puts n in old's slot
func (t *Tree) replace(old, n *Node) {
	p := old.parent
	n.parent = p
	switch {
	case p == nil:
		t.root = n
	case p.First == old:
		p.First = n
	default:
		p.Second = n
	}
}

// Node returns the split node with the given id
func (t *Tree) Node(node id.NodeID) (*Node, bool) {
	n, ok := t.splits[node]
	return n, ok
}

// SplitFor returns the nearest ancestor split of pane with orientation o,
// and whether pane lies in its first child
func (t *Tree) SplitFor(pane id.PaneID, o Orientation) (id.NodeID, bool, bool) {
	leaf, ok := t.leaves[pane]
	if !ok {
		return 0, false, false
	}
	child := leaf
	for n := leaf.parent; n != nil; child, n = n, n.parent {
		if n.Orientation == o {
			return n.ID, n.First == child, true
		}
	}
	return 0, false, false
}

// String renders the tree shape, for example V(1,H(2,3))
func (t *Tree) String() string {
	var b strings.Builder
	t.root.shape(&b)
	return b.String()
}

// Validate checks the structural invariants: every split has two children,
// parent links are consistent, ratios are in (0,1) and the index maps match
// the reachable nodes.
func (t *Tree) Validate() error {
	if t.root == nil {
		return &InvariantError{Op: "validate", Tab: t.tab, Reason: "tree has no root"}
	}
	if t.root.parent != nil {
		return &InvariantError{Op: "validate", Tab: t.tab, Reason: "root has a parent"}
	}

	leaves, splits := 0, 0
	var walk func(n *Node) error
	walk = func(n *Node) error {
		switch n.Kind {
		case KindPane:
			leaves++
			if t.leaves[n.Pane] != n {
				return &InvariantError{Op: "validate", Tab: t.tab, Pane: n.Pane, Reason: "pane missing from index"}
			}
		case KindSplit:
			splits++
			if n.First == nil || n.Second == nil {
				return &InvariantError{Op: "validate", Tab: t.tab, Node: n.ID, Reason: "split has fewer than two children"}
			}
			if n.First.parent != n || n.Second.parent != n {
				return &InvariantError{Op: "validate", Tab: t.tab, Node: n.ID, Reason: "child parent link broken"}
			}
			if n.Ratio <= 0 || n.Ratio >= 1 {
				return &InvariantError{Op: "validate", Tab: t.tab, Node: n.ID, Reason: "ratio outside (0,1)"}
			}
			if t.splits[n.ID] != n {
				return &InvariantError{Op: "validate", Tab: t.tab, Node: n.ID, Reason: "split missing from index"}
			}
			if err := walk(n.First); err != nil {
				return err
			}
			return walk(n.Second)
		default:
			return &InvariantError{Op: "validate", Tab: t.tab, Reason: "node of unknown kind"}
		}
		return nil
	}
	if err := walk(t.root); err != nil {
		return err
	}

	if leaves != len(t.leaves) || splits != len(t.splits) {
		return &InvariantError{Op: "validate", Tab: t.tab, Reason: "index holds unreachable nodes"}
	}
	if leaves != splits+1 {
		return &InvariantError{Op: "validate", Tab: t.tab, Reason: "leaf count is not split count plus one"}
	}
	return nil
}
