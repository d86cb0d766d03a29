package tabs

import "errors"

var (
	// ErrTabNotFound is returned for operations naming a tab that is not open
	ErrTabNotFound = errors.New("tab not found")
	// ErrPaneNotFound is returned for operations naming a pane not in the tab
	ErrPaneNotFound = errors.New("pane not found")
)
