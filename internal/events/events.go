// package events contains the payloads shared between the tree, the IPC
// server and the tui packages.
package events

import "time"

// Event types.
const (
	TypeWindow      = "window"
	TypeWorkspace   = "workspace"
	TypeOutput      = "output"
	TypeTransaction = "transaction"
	TypeBinding     = "binding"
)

// Event changes.
const (
	ChangeNew        = "new"
	ChangeClose      = "close"
	ChangeFocus      = "focus"
	ChangeMove       = "move"
	ChangeFloating   = "floating"
	ChangeFullscreen = "fullscreen_mode"
	ChangeUrgent     = "urgent"
	ChangeTitle      = "title"
	ChangeRename     = "rename"
	ChangeEmpty      = "empty"
	ChangeInit       = "init"
	ChangeApplied    = "applied"
	ChangeTimedOut   = "timed_out"
	ChangeRun        = "run"
)

// Event is a change notification streamed to IPC subscribers.
type Event struct {
	Type   string    `json:"type"`
	Change string    `json:"change"`
	ID     uint64    `json:"id,omitempty"`
	Name   string    `json:"name,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// Rect is a box in layout coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TreeNode is the JSON view of one entity and its children.
type TreeNode struct {
	ID         uint64     `json:"id"`
	Type       string     `json:"type"`
	Name       string     `json:"name,omitempty"`
	Rect       Rect       `json:"rect"`
	Content    *Rect      `json:"content,omitempty"`
	Preview    *Rect      `json:"preview,omitempty"`
	Focused    bool       `json:"focused"`
	Active     bool       `json:"active,omitempty"`
	Layout     string     `json:"layout,omitempty"`
	Border     string     `json:"border,omitempty"`
	Fullscreen string     `json:"fullscreen_mode,omitempty"`
	Urgent     bool       `json:"urgent,omitempty"`
	PID        int        `json:"pid,omitempty"`
	AppID      string     `json:"app_id,omitempty"`
	Nodes      []TreeNode `json:"nodes,omitempty"`
	Floating   []TreeNode `json:"floating_nodes,omitempty"`
}

// Walk calls fn for n and every descendant, depth first.
func (n TreeNode) Walk(fn func(TreeNode, int)) {
	n.walk(fn, 0)
}

func (n TreeNode) walk(fn func(TreeNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Nodes {
		c.walk(fn, depth+1)
	}
	for _, c := range n.Floating {
		c.walk(fn, depth+1)
	}
}

// CommandResult is the outcome of one command.
type CommandResult struct {
	Command string `json:"command"`
	Status  string `json:"status"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TreeUpdateMsg carries a fresh tree to the tui.
type TreeUpdateMsg struct{ Tree TreeNode }

// EventMsg carries one streamed event to the tui.
type EventMsg struct{ Event Event }

// StreamErrorMsg reports that the IPC event stream ended.
type StreamErrorMsg struct{ Err error }
