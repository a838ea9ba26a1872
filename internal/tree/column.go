// pattern: Functional Core

package tree

import (
	"slices"

	"tessera/internal/layout"
)

// ColumnLayout is how a column shares its height between its windows.
type ColumnLayout int

const (
	// LayoutSplit stacks windows top to bottom by height fraction.
	LayoutSplit ColumnLayout = iota
	// LayoutStacked gives every window the whole column; only the active
	// child is visible.
	LayoutStacked
)

func (l ColumnLayout) String() string {
	if l == LayoutStacked {
		return "stacked"
	}
	return "split"
}

// ColumnState is the triple-buffered part of a Column.
type ColumnState struct {
	Box    layout.Box
	Layout ColumnLayout

	// Cached back-references, owned by reconciliation.
	Workspace WorkspaceID
	Output    OutputID

	Focused      bool
	IsFirstChild bool
	IsLastChild  bool

	Children    []WindowID
	ActiveChild WindowID

	// Drop preview while a window is dragged over the column. The new
	// window goes after PreviewTarget, or first when it is zero.
	ShowPreview   bool
	PreviewTarget WindowID
	PreviewBox    layout.Box

	Dead bool
}

func (s ColumnState) clone() ColumnState {
	s.Children = slices.Clone(s.Children)
	return s
}

// Column is a vertical group of tiled windows.
type Column struct {
	root *Root
	id   ColumnID

	pending, committed, current ColumnState
	dirty                       bool
	txnRefs                     int

	// Share of the workspace width. Zero means "take the average".
	widthFraction float64
}

// NewColumn creates a detached, empty column.
func (r *Root) NewColumn() *Column {
	c := &Column{root: r, id: ColumnID(r.allocID())}
	r.columns[c.id] = c
	r.markDirty(c.id.Ref())
	return c
}

// ID returns the column's handle.
func (c *Column) ID() ColumnID { return c.id }

// Pending returns a copy of the pending state.
func (c *Column) Pending() ColumnState { return c.pending.clone() }

// Committed returns a copy of the committed state.
func (c *Column) Committed() ColumnState { return c.committed.clone() }

// Current returns a copy of the visible state.
func (c *Column) Current() ColumnState { return c.current.clone() }

// Dead reports whether destruction has begun.
func (c *Column) Dead() bool { return c.pending.Dead }

// Workspace returns the owning workspace, or nil when detached.
func (c *Column) Workspace() *Workspace { return c.root.workspaces[c.pending.Workspace] }

// WidthFraction returns the column's share of its workspace.
func (c *Column) WidthFraction() float64 { return c.widthFraction }

// Children returns the pending children in order.
func (c *Column) Children() []*Window {
	out := make([]*Window, 0, len(c.pending.Children))
	for _, id := range c.pending.Children {
		out = append(out, c.root.windows[id])
	}
	return out
}

// ActiveChild returns the pending active child, or nil if empty.
func (c *Column) ActiveChild() *Window { return c.root.windows[c.pending.ActiveChild] }

// Len returns the number of pending children.
func (c *Column) Len() int { return len(c.pending.Children) }

// IndexOf returns w's position in the column, or -1.
func (c *Column) IndexOf(w *Window) int {
	if w == nil {
		return -1
	}
	return slices.Index(c.pending.Children, w.id)
}

// InsertChild places w at index (clamped to the valid range). w must be
// detached.
func (c *Column) InsertChild(index int, w *Window) {
	if c.pending.Dead || w.pending.Dead {
		return
	}
	if w.pending.Column != 0 || w.pending.Workspace != 0 {
		c.root.fatalf(w.id.Ref(), "insert into %s: window is still attached", c.id.Ref())
	}
	index = min(max(index, 0), len(c.pending.Children))
	c.pending.Children = slices.Insert(c.pending.Children, index, w.id)
	if c.pending.ActiveChild == 0 {
		c.pending.ActiveChild = w.id
	}
	w.heightFraction = 0
	c.changed()
}

// AddChild appends w to the column.
func (c *Column) AddChild(w *Window) {
	c.InsertChild(len(c.pending.Children), w)
}

// AddSibling inserts w directly after (or before) fixed in fixed's column.
func (c *Column) AddSibling(fixed, w *Window, after bool) {
	if c.pending.Dead || fixed.pending.Dead || w.pending.Dead {
		return
	}
	i := c.IndexOf(fixed)
	if i < 0 {
		c.root.fatalf(c.id.Ref(), "sibling %s is not a child", fixed.id.Ref())
	}
	if after {
		i++
	}
	c.InsertChild(i, w)
}

// RemoveChild detaches w from the column. If w was active, the window that
// takes its place (or the one above, at the end) becomes active.
func (c *Column) RemoveChild(w *Window) {
	if c.pending.Dead {
		return
	}
	list, i := removeID(c.pending.Children, w.id)
	if i < 0 {
		c.root.fatalf(c.id.Ref(), "remove: %s is not a child", w.id.Ref())
	}
	c.pending.Children = list
	if c.pending.ActiveChild == w.id {
		c.pending.ActiveChild = 0
		if n := len(list); n > 0 {
			c.pending.ActiveChild = list[min(i, n-1)]
		}
	}
	if c.pending.PreviewTarget == w.id {
		c.pending.PreviewTarget = 0
	}
	w.reconcileDetached()
	c.changed()
}

// SetActiveChild marks w, which must be a child, as the active child.
func (c *Column) SetActiveChild(w *Window) {
	if c.pending.Dead || w.pending.Dead {
		return
	}
	if c.IndexOf(w) < 0 {
		c.root.fatalf(c.id.Ref(), "set active: %s is not a child", w.id.Ref())
	}
	if c.pending.ActiveChild == w.id {
		return
	}
	c.pending.ActiveChild = w.id
	c.root.markDirty(c.id.Ref())
	if c.pending.Layout == LayoutStacked {
		c.root.queueArrange(c.Workspace())
	}
}

// SetLayout switches between split and stacked.
func (c *Column) SetLayout(l ColumnLayout) {
	if c.pending.Dead || c.pending.Layout == l {
		return
	}
	c.pending.Layout = l
	c.root.markDirty(c.id.Ref())
	c.root.queueArrange(c.Workspace())
}

// SetPreview shows or hides the drop preview. target is the window the
// dropped window would follow; nil means the top of the column.
func (c *Column) SetPreview(show bool, target *Window) {
	if c.pending.Dead {
		return
	}
	var tid WindowID
	if show && target != nil {
		tid = target.id
	}
	if c.pending.ShowPreview == show && c.pending.PreviewTarget == tid {
		return
	}
	c.pending.ShowPreview = show
	c.pending.PreviewTarget = tid
	if !show {
		c.pending.PreviewBox = layout.Box{}
	}
	c.root.markDirty(c.id.Ref())
	c.root.queueArrange(c.Workspace())
}

// SetResizing flags every child as being interactively resized.
func (c *Column) SetResizing(resizing bool) {
	if c == nil {
		return
	}
	for _, w := range c.Children() {
		w.SetResizing(resizing)
	}
}

// Detach removes the column from its workspace.
func (c *Column) Detach() {
	if ws := c.Workspace(); ws != nil {
		ws.RemoveTiling(c)
		return
	}
	c.reconcileDetached()
}

// changed restores cached flags after a structural change and queues the
// owning workspace for arrange.
func (c *Column) changed() {
	c.root.markDirty(c.id.Ref())
	if ws := c.Workspace(); ws != nil {
		ws.reconcile()
		c.root.queueArrange(ws)
		return
	}
	c.reconcileDetached()
}

func (c *Column) reconcile(ws WorkspaceID, out OutputID, first, last bool) {
	focused := false
	n := len(c.pending.Children)
	for i, id := range c.pending.Children {
		w := c.root.windows[id]
		if w == nil {
			c.root.fatalf(c.id.Ref(), "child %d does not exist", id)
		}
		w.reconcile(c.id, ws, out, i == 0, i == n-1)
		focused = focused || w.pending.Focused
	}

	s := &c.pending
	if s.Workspace == ws && s.Output == out && s.IsFirstChild == first &&
		s.IsLastChild == last && s.Focused == focused {
		return
	}
	s.Workspace, s.Output = ws, out
	s.IsFirstChild, s.IsLastChild = first, last
	s.Focused = focused
	c.root.markDirty(c.id.Ref())
}

func (c *Column) reconcileDetached() {
	c.reconcile(0, 0, false, false)
}

// childNeighbour returns the window above (or below) w.
func (c *Column) childNeighbour(w *Window, above bool) *Window {
	i := c.IndexOf(w)
	if i < 0 {
		return nil
	}
	if above {
		i--
	} else {
		i++
	}
	if i < 0 || i >= len(c.pending.Children) {
		return nil
	}
	return c.root.windows[c.pending.Children[i]]
}

// DestroyIfEmpty begins destruction of a column with no children.
func (c *Column) DestroyIfEmpty() {
	if c.pending.Dead || len(c.pending.Children) > 0 {
		return
	}
	c.BeginDestroy()
}

// BeginDestroy marks the column dead and detaches it. Remaining children
// are detached too.
func (c *Column) BeginDestroy() {
	if c.pending.Dead {
		return
	}
	c.root.notifyDestroy(c.id.Ref())
	for _, w := range c.Children() {
		c.RemoveChild(w)
	}
	c.Detach()
	c.pending.Dead = true
	c.root.markDirty(c.id.Ref())
}

func (c *Column) considerDestroy() {
	if !c.pending.Dead || c.dirty || c.txnRefs > 0 {
		return
	}
	delete(c.root.columns, c.id)
}
