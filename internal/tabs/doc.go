// Package tabs manages the ordered set of tabs, each an independent layout
// tree with its own focused pane, and binds every pane to exactly one session.
//
// A Manager is not safe for concurrent use; the mux engine serializes access.
package tabs
