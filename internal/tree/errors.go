// pattern: Functional Core

package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a handle or name no longer resolves.
	ErrNotFound = errors.New("not found")
	// ErrDead is returned when an operation targets an entity being destroyed.
	ErrDead = errors.New("entity is being destroyed")
)

// InvariantError reports a tree shape the layout code cannot handle. It is
// raised with panic: continuing would corrupt the visible tree.
type InvariantError struct {
	Node   NodeRef
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("tree invariant violated at %s: %s", e.Node, e.Reason)
}

// fatalf logs an invariant violation and panics with an *InvariantError.
func (r *Root) fatalf(node NodeRef, format string, args ...any) {
	err := &InvariantError{Node: node, Reason: fmt.Sprintf(format, args...)}
	r.log.Error("invariant violation", "node", node.String(), "reason", err.Reason)
	r.log.Sync()
	panic(err)
}
