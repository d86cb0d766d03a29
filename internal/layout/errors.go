package layout

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

var (
	// ErrInvariant matches every *InvariantError
	ErrInvariant = errors.New("layout invariant violation")
	// ErrLastPane is returned when closing the only pane of a tree
	ErrLastPane = errors.New("cannot close the last pane of a tab")
)

// InvariantError reports a structural operation on ids the tree does not hold,
// or a tree found inconsistent by Validate
type InvariantError struct {
	Op     string
	Tab    id.TabID
	Pane   id.PaneID
	Node   id.NodeID
	Reason string
}

func (e *InvariantError) Error() string {
	subject := ""
	switch {
	case !e.Pane.IsZero():
		subject = " " + e.Pane.String()
	case !e.Node.IsZero():
		subject = " " + e.Node.String()
	}
	return fmt.Sprintf("layout %s: %s%s: %s", e.Tab, e.Op, subject, e.Reason)
}

// Is makes errors.Is(err, ErrInvariant) true for any InvariantError
func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }

// violation builds an InvariantError; debug builds panic with it instead
func violation(err *InvariantError) error {
	if debugInvariants {
		panic(err)
	}
	return err
}
