// pattern: Functional Core

package tree

import "fmt"

// WindowID, ColumnID, WorkspaceID and OutputID are stable handles into the
// Root's entity tables. The zero value never names an entity.
type (
	WindowID    uint64
	ColumnID    uint64
	WorkspaceID uint64
	OutputID    uint64
)

// Kind identifies the entity type behind a NodeRef.
type Kind int

const (
	KindRoot Kind = iota
	KindOutput
	KindWorkspace
	KindColumn
	KindWindow
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindOutput:
		return "output"
	case KindWorkspace:
		return "workspace"
	case KindColumn:
		return "column"
	case KindWindow:
		return "window"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// NodeRef names any triple-buffered entity. It is comparable and safe to use
// as a map key.
type NodeRef struct {
	Kind Kind
	ID   uint64
}

func (r NodeRef) String() string {
	if r.Kind == KindRoot {
		return "root"
	}
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}

// RootRef is the reference to the singleton root.
var RootRef = NodeRef{Kind: KindRoot}

// Ref returns the node reference for a window handle.
func (id WindowID) Ref() NodeRef { return NodeRef{Kind: KindWindow, ID: uint64(id)} }

// Ref returns the node reference for a column handle.
func (id ColumnID) Ref() NodeRef { return NodeRef{Kind: KindColumn, ID: uint64(id)} }

// Ref returns the node reference for a workspace handle.
func (id WorkspaceID) Ref() NodeRef { return NodeRef{Kind: KindWorkspace, ID: uint64(id)} }

// Ref returns the node reference for an output handle.
func (id OutputID) Ref() NodeRef { return NodeRef{Kind: KindOutput, ID: uint64(id)} }
