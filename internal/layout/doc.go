// Package layout implements the per-tab binary split tree.
//
// Leaves are panes; internal nodes are splits with exactly two children and a
// size ratio. Closing a pane collapses its parent split so no internal node is
// ever left with one child. Geometry is computed on demand from the caller's
// bounds, the tree itself stores only ratios.
package layout
