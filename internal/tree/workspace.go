// pattern: Functional Core

package tree

import (
	"slices"

	"tessera/internal/events"
	"tessera/internal/layout"
)

// FocusMode says whether keyboard focus on a workspace is in the tiling
// layout or the floating list.
type FocusMode int

const (
	FocusTiling FocusMode = iota
	FocusFloating
)

// WorkspaceState is the triple-buffered part of a Workspace.
type WorkspaceState struct {
	Name string
	Box  layout.Box
	// Output is zero while the workspace is detached.
	Output OutputID

	Tiling         []ColumnID
	Floating       []WindowID
	ActiveColumn   ColumnID
	ActiveFloating WindowID
	FocusMode      FocusMode

	Fullscreen WindowID
	Focused    bool
	Dead       bool
}

func (s WorkspaceState) clone() WorkspaceState {
	s.Tiling = slices.Clone(s.Tiling)
	s.Floating = slices.Clone(s.Floating)
	return s
}

// Workspace holds tiled columns and floating windows.
type Workspace struct {
	root *Root
	id   WorkspaceID

	pending, committed, current WorkspaceState
	dirty                       bool
	txnRefs                     int
	needsArrange                bool

	gapsInner float64
	gapsOuter float64
}

// NewWorkspace creates a workspace called name on out. A nil out leaves it
// detached.
func (r *Root) NewWorkspace(name string, out *Output) *Workspace {
	ws := &Workspace{
		root:      r,
		id:        WorkspaceID(r.allocID()),
		gapsInner: r.opts.GapsInner,
		gapsOuter: r.opts.GapsOuter,
	}
	ws.pending.Name = name
	r.workspaces[ws.id] = ws
	r.pending.Workspaces = append(r.pending.Workspaces, ws.id)
	r.setDirty()
	if out != nil {
		ws.pending.Output = out.id
		if out.pending.ActiveWorkspace == 0 {
			out.setActiveWorkspace(ws)
		}
	}
	r.queueArrange(ws)
	r.emit(events.Event{Type: events.TypeWorkspace, Change: events.ChangeInit, ID: uint64(ws.id), Name: name})
	return ws
}

// WorkspaceByName finds a live workspace by name.
func (r *Root) WorkspaceByName(name string) *Workspace {
	for _, id := range r.pending.Workspaces {
		if ws := r.workspaces[id]; ws != nil && ws.pending.Name == name {
			return ws
		}
	}
	return nil
}

// ID returns the workspace's handle.
func (ws *Workspace) ID() WorkspaceID { return ws.id }

// Name returns the pending name.
func (ws *Workspace) Name() string { return ws.pending.Name }

// Pending returns a copy of the pending state.
func (ws *Workspace) Pending() WorkspaceState { return ws.pending.clone() }

// Committed returns a copy of the committed state.
func (ws *Workspace) Committed() WorkspaceState { return ws.committed.clone() }

// Current returns a copy of the visible state.
func (ws *Workspace) Current() WorkspaceState { return ws.current.clone() }

// Dead reports whether destruction has begun.
func (ws *Workspace) Dead() bool { return ws.pending.Dead }

// Output returns the output showing the workspace, or nil when detached.
func (ws *Workspace) Output() *Output { return ws.root.outputs[ws.pending.Output] }

// Gaps returns the inner and outer gaps.
func (ws *Workspace) Gaps() (inner, outer float64) { return ws.gapsInner, ws.gapsOuter }

// SetGaps changes the gaps. Negative values become zero.
func (ws *Workspace) SetGaps(inner, outer float64) {
	inner, outer = max(inner, 0), max(outer, 0)
	if ws.gapsInner == inner && ws.gapsOuter == outer {
		return
	}
	ws.gapsInner, ws.gapsOuter = inner, outer
	ws.root.queueArrange(ws)
}

// Columns returns the tiling columns in order.
func (ws *Workspace) Columns() []*Column {
	out := make([]*Column, 0, len(ws.pending.Tiling))
	for _, id := range ws.pending.Tiling {
		out = append(out, ws.root.columns[id])
	}
	return out
}

// FloatingWindows returns the floating windows, bottom first.
func (ws *Workspace) FloatingWindows() []*Window {
	out := make([]*Window, 0, len(ws.pending.Floating))
	for _, id := range ws.pending.Floating {
		out = append(out, ws.root.windows[id])
	}
	return out
}

// ActiveColumn returns the pending active column, or nil.
func (ws *Workspace) ActiveColumn() *Column { return ws.root.columns[ws.pending.ActiveColumn] }

// ActiveTilingWindow returns the active child of the active column.
func (ws *Workspace) ActiveTilingWindow() *Window {
	if c := ws.ActiveColumn(); c != nil {
		return c.ActiveChild()
	}
	return nil
}

// ActiveFloatingWindow returns the most recently focused floating window,
// or nil.
func (ws *Workspace) ActiveFloatingWindow() *Window {
	return ws.root.windows[ws.pending.ActiveFloating]
}

// ActiveWindow returns the window that should get focus when the workspace
// is entered.
func (ws *Workspace) ActiveWindow() *Window {
	if fs := ws.root.windows[ws.pending.Fullscreen]; fs != nil {
		return fs
	}
	if ws.pending.FocusMode == FocusFloating {
		if w := ws.root.windows[ws.pending.ActiveFloating]; w != nil {
			return w
		}
	}
	if w := ws.ActiveTilingWindow(); w != nil {
		return w
	}
	return ws.root.windows[ws.pending.ActiveFloating]
}

// Empty reports whether the workspace holds no windows.
func (ws *Workspace) Empty() bool {
	return len(ws.pending.Tiling) == 0 && len(ws.pending.Floating) == 0
}

// HasUrgent reports whether any window on the workspace is urgent.
func (ws *Workspace) HasUrgent() bool {
	for _, c := range ws.Columns() {
		for _, w := range c.Children() {
			if w.pending.Urgent {
				return true
			}
		}
	}
	for _, w := range ws.FloatingWindows() {
		if w.pending.Urgent {
			return true
		}
	}
	return false
}

// InsertTiling places column c at index. c must be detached.
func (ws *Workspace) InsertTiling(index int, c *Column) {
	if ws.pending.Dead || c.pending.Dead {
		return
	}
	if c.pending.Workspace != 0 {
		ws.root.fatalf(c.id.Ref(), "insert into %s: column is still attached", ws.id.Ref())
	}
	index = min(max(index, 0), len(ws.pending.Tiling))
	ws.pending.Tiling = slices.Insert(ws.pending.Tiling, index, c.id)
	if ws.pending.ActiveColumn == 0 {
		ws.pending.ActiveColumn = c.id
	}
	c.widthFraction = 0
	ws.changed()
}

// AddTiling appends column c.
func (ws *Workspace) AddTiling(c *Column) {
	ws.InsertTiling(len(ws.pending.Tiling), c)
}

// AddColumnSibling inserts c directly after (or before) fixed.
func (ws *Workspace) AddColumnSibling(fixed, c *Column, after bool) {
	if ws.pending.Dead || fixed.pending.Dead || c.pending.Dead {
		return
	}
	i := slices.Index(ws.pending.Tiling, fixed.id)
	if i < 0 {
		ws.root.fatalf(ws.id.Ref(), "sibling %s is not a column here", fixed.id.Ref())
	}
	if after {
		i++
	}
	ws.InsertTiling(i, c)
}

// RemoveTiling detaches column c.
func (ws *Workspace) RemoveTiling(c *Column) {
	if ws.pending.Dead {
		return
	}
	list, i := removeID(ws.pending.Tiling, c.id)
	if i < 0 {
		ws.root.fatalf(ws.id.Ref(), "remove: %s is not a column here", c.id.Ref())
	}
	ws.pending.Tiling = list
	if ws.pending.ActiveColumn == c.id {
		ws.pending.ActiveColumn = 0
		if n := len(list); n > 0 {
			ws.pending.ActiveColumn = list[min(i, n-1)]
		}
	}
	c.reconcileDetached()
	ws.changed()
}

// SetActiveColumn marks c, which must be one of the workspace's columns,
// as active.
func (ws *Workspace) SetActiveColumn(c *Column) {
	if ws.pending.Dead || c.pending.Dead {
		return
	}
	if !slices.Contains(ws.pending.Tiling, c.id) {
		ws.root.fatalf(ws.id.Ref(), "set active: %s is not a column here", c.id.Ref())
	}
	if ws.pending.ActiveColumn == c.id {
		return
	}
	ws.pending.ActiveColumn = c.id
	ws.root.markDirty(ws.id.Ref())
}

// AddFloating appends w to the floating list. w must be detached.
func (ws *Workspace) AddFloating(w *Window) {
	if ws.pending.Dead || w.pending.Dead {
		return
	}
	if w.pending.Column != 0 || w.pending.Workspace != 0 {
		ws.root.fatalf(w.id.Ref(), "float on %s: window is still attached", ws.id.Ref())
	}
	ws.pending.Floating = append(ws.pending.Floating, w.id)
	if ws.pending.ActiveFloating == 0 {
		ws.pending.ActiveFloating = w.id
	}
	ws.changed()
}

// RemoveFloating detaches a floating window.
func (ws *Workspace) RemoveFloating(w *Window) {
	if ws.pending.Dead {
		return
	}
	list, i := removeID(ws.pending.Floating, w.id)
	if i < 0 {
		ws.root.fatalf(ws.id.Ref(), "remove: %s is not floating here", w.id.Ref())
	}
	ws.pending.Floating = list
	if ws.pending.ActiveFloating == w.id {
		ws.pending.ActiveFloating = 0
		if n := len(list); n > 0 {
			ws.pending.ActiveFloating = list[n-1]
		}
	}
	w.reconcileDetached()
	ws.changed()
}

func (ws *Workspace) setActiveFloating(w *Window) {
	if ws.pending.ActiveFloating == w.id {
		return
	}
	ws.pending.ActiveFloating = w.id
	ws.root.markDirty(ws.id.Ref())
}

func (ws *Workspace) setFocusMode(m FocusMode) {
	if ws.pending.FocusMode == m {
		return
	}
	ws.pending.FocusMode = m
	ws.root.markDirty(ws.id.Ref())
}

// Rename changes the workspace name and follows it in the PID table.
func (ws *Workspace) Rename(name string) {
	old := ws.pending.Name
	if old == name {
		return
	}
	ws.pending.Name = name
	ws.root.RenamePIDWorkspaces(old, name)
	ws.root.markDirty(ws.id.Ref())
	ws.root.emit(events.Event{Type: events.TypeWorkspace, Change: events.ChangeRename, ID: uint64(ws.id), Name: name, Detail: old})
}

// placeTiling puts a detached window after the active tiling window, or in
// a new column when the workspace has none.
func (ws *Workspace) placeTiling(w *Window) {
	if target := ws.ActiveTilingWindow(); target != nil {
		target.Column().AddSibling(target, w, true)
		return
	}
	c := ws.root.NewColumn()
	ws.AddTiling(c)
	c.AddChild(w)
}

// tilingNeighbour returns the column left (or right) of c.
func (ws *Workspace) tilingNeighbour(c *Column, left bool) *Column {
	i := slices.Index(ws.pending.Tiling, c.id)
	if i < 0 {
		return nil
	}
	if left {
		i--
	} else {
		i++
	}
	if i < 0 || i >= len(ws.pending.Tiling) {
		return nil
	}
	return ws.root.columns[ws.pending.Tiling[i]]
}

func (ws *Workspace) changed() {
	ws.root.markDirty(ws.id.Ref())
	ws.reconcile()
	ws.root.queueArrange(ws)
}

// reconcile recomputes the cached flags of every column and floating
// window from the forward ownership edges.
func (ws *Workspace) reconcile() {
	out := ws.pending.Output
	n := len(ws.pending.Tiling)
	focused := false
	for i, id := range ws.pending.Tiling {
		c := ws.root.columns[id]
		if c == nil {
			ws.root.fatalf(ws.id.Ref(), "column %d does not exist", id)
		}
		c.reconcile(ws.id, out, i == 0, i == n-1)
		focused = focused || c.pending.Focused
	}
	for _, id := range ws.pending.Floating {
		w := ws.root.windows[id]
		if w == nil {
			ws.root.fatalf(ws.id.Ref(), "floating window %d does not exist", id)
		}
		w.reconcile(0, ws.id, out, false, false)
		focused = focused || w.pending.Focused
	}
	if ws.pending.Focused != focused {
		ws.pending.Focused = focused
		ws.root.markDirty(ws.id.Ref())
	}
}

func (ws *Workspace) setOutput(out OutputID) {
	if ws.pending.Output == out {
		return
	}
	ws.pending.Output = out
	ws.reconcile()
	ws.root.markDirty(ws.id.Ref())
	ws.root.queueArrange(ws)
}

// destroyIfUnused destroys an empty workspace that no output shows.
func (ws *Workspace) destroyIfUnused() {
	if ws.pending.Dead || !ws.Empty() {
		return
	}
	if ws.root.pending.ActiveWorkspace == ws.id {
		return
	}
	if out := ws.Output(); out != nil && out.pending.ActiveWorkspace == ws.id {
		return
	}
	ws.BeginDestroy()
}

// BeginDestroy marks the workspace dead and removes it from the root. It
// must be empty.
func (ws *Workspace) BeginDestroy() {
	if ws.pending.Dead {
		return
	}
	if !ws.Empty() {
		ws.root.fatalf(ws.id.Ref(), "destroying a workspace that still has windows")
	}
	r := ws.root
	r.notifyDestroy(ws.id.Ref())
	ws.pending.Dead = true
	r.pending.Workspaces, _ = removeID(r.pending.Workspaces, ws.id)
	if out := ws.Output(); out != nil && out.pending.ActiveWorkspace == ws.id {
		out.setActiveWorkspace(out.firstWorkspace())
	}
	ws.pending.Output = 0
	r.setDirty()
	r.markDirty(ws.id.Ref())
	r.emit(events.Event{Type: events.TypeWorkspace, Change: events.ChangeEmpty, ID: uint64(ws.id), Name: ws.pending.Name})
}

func (ws *Workspace) considerDestroy() {
	if !ws.pending.Dead || ws.dirty || ws.txnRefs > 0 {
		return
	}
	delete(ws.root.workspaces, ws.id)
}
