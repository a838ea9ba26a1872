// pattern: Functional Core

// Package tree is the layout model of the compositor: outputs own
// workspaces, workspaces own columns and floating windows, columns own
// tiled windows. Every entity carries pending, committed and current state.
// Only tree methods write pending state; only the Publisher returned by New
// copies pending into committed and committed into current.
package tree

import (
	"slices"
	"time"

	"tessera/internal/events"
	"tessera/internal/layout"
	"tessera/internal/logging"
)

// WrapMode controls what directional focus does at the edge of a workspace.
type WrapMode int

const (
	WrapNo WrapMode = iota
	WrapYes
	WrapForce
	WrapWorkspace
)

// Options are the tunables the tree reads while placing and arranging.
type Options struct {
	GapsInner float64
	GapsOuter float64

	Border                  BorderMode
	BorderThickness         float64
	FloatingBorder          BorderMode
	FloatingBorderThickness float64
	TitlebarHeight          float64

	FloatingMinWidth  float64
	FloatingMinHeight float64
	// Zero maximums mean the size of the workspace.
	FloatingMaxWidth  float64
	FloatingMaxHeight float64

	FocusWrapping WrapMode
	// PreviewFraction is the share of a column given to the drop preview.
	PreviewFraction float64
}

// DefaultOptions returns the built-in tunables.
func DefaultOptions() Options {
	return Options{
		Border:                  BorderNormal,
		BorderThickness:         2,
		FloatingBorder:          BorderNormal,
		FloatingBorderThickness: 2,
		TitlebarHeight:          24,
		FloatingMinWidth:        75,
		FloatingMinHeight:       50,
		FocusWrapping:           WrapYes,
		PreviewFraction:         0.2,
	}
}

// RootState is the triple-buffered part of the Root.
type RootState struct {
	Outputs         []OutputID
	Workspaces      []WorkspaceID
	ActiveOutput    OutputID
	ActiveWorkspace WorkspaceID

	FocusedWindow WindowID
	// FocusedLayer is an overlay-shell surface holding exclusive input.
	FocusedLayer Overlay
	// FocusedSurface is an explicitly pinned surface. It beats everything.
	FocusedSurface Overlay

	FullscreenGlobal WindowID
}

func (s RootState) clone() RootState {
	s.Outputs = slices.Clone(s.Outputs)
	s.Workspaces = slices.Clone(s.Workspaces)
	return s
}

// Root is the single owner of every entity. It is not safe for concurrent
// use; the control loop is its only caller.
type Root struct {
	log  *logging.ScopedLogger
	opts Options

	nextID     uint64
	windows    map[WindowID]*Window
	columns    map[ColumnID]*Column
	workspaces map[WorkspaceID]*Workspace
	outputs    map[OutputID]*Output

	pending, committed, current RootState
	dirty                       bool
	dirtyNodes                  []NodeRef
	arrangeQueue                []WorkspaceID

	pids *pidTable

	destroyListeners []func(NodeRef)
	eventListeners   []func(events.Event)
}

// New creates an empty tree. The returned Publisher is the only way to move
// state from pending to committed to current; hand it to the transaction
// manager and nobody else.
func New(log *logging.ScopedLogger, opts Options) (*Root, *Publisher) {
	if log == nil {
		log = logging.NopLogger()
	}
	r := &Root{
		log:        log,
		opts:       opts,
		windows:    make(map[WindowID]*Window),
		columns:    make(map[ColumnID]*Column),
		workspaces: make(map[WorkspaceID]*Workspace),
		outputs:    make(map[OutputID]*Output),
		pids:       newPIDTable(),
	}
	return r, &Publisher{root: r}
}

func (r *Root) allocID() uint64 {
	r.nextID++
	return r.nextID
}

// Options returns the tunables in effect.
func (r *Root) Options() Options {
	return r.opts
}

// SetOptions replaces the tunables and re-arranges every workspace.
func (r *Root) SetOptions(opts Options) {
	r.opts = opts
	for _, id := range r.pending.Workspaces {
		if ws := r.workspaces[id]; ws != nil {
			ws.gapsInner = opts.GapsInner
			ws.gapsOuter = opts.GapsOuter
			r.queueArrange(ws)
		}
	}
}

// SetDefaultGaps changes the gaps given to workspaces created from now on.
// Existing workspaces keep theirs.
func (r *Root) SetDefaultGaps(inner, outer float64) {
	r.opts.GapsInner, r.opts.GapsOuter = max(inner, 0), max(outer, 0)
}

// SetTitlebarHeight changes the titlebar height of normal borders and
// re-arranges every workspace.
func (r *Root) SetTitlebarHeight(h float64) {
	h = max(h, 0)
	if r.opts.TitlebarHeight == h {
		return
	}
	r.opts.TitlebarHeight = h
	for _, id := range r.pending.Workspaces {
		if ws := r.workspaces[id]; ws != nil {
			r.queueArrange(ws)
		}
	}
}

// Pending returns a copy of the root's pending state.
func (r *Root) Pending() RootState { return r.pending.clone() }

// Committed returns a copy of the root's committed state.
func (r *Root) Committed() RootState { return r.committed.clone() }

// Current returns a copy of the root's visible state.
func (r *Root) Current() RootState { return r.current.clone() }

// Window resolves a handle. It returns nil once the window is destroyed.
func (r *Root) Window(id WindowID) *Window { return r.windows[id] }

// Column resolves a handle.
func (r *Root) Column(id ColumnID) *Column { return r.columns[id] }

// Workspace resolves a handle.
func (r *Root) Workspace(id WorkspaceID) *Workspace { return r.workspaces[id] }

// Output resolves a handle.
func (r *Root) Output(id OutputID) *Output { return r.outputs[id] }

// Windows returns every live window in creation order.
func (r *Root) Windows() []*Window {
	out := make([]*Window, 0, len(r.windows))
	for _, w := range r.windows {
		if !w.pending.Dead {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b *Window) int { return int(a.id) - int(b.id) })
	return out
}

// Workspaces returns every workspace in creation order.
func (r *Root) Workspaces() []*Workspace {
	out := make([]*Workspace, 0, len(r.pending.Workspaces))
	for _, id := range r.pending.Workspaces {
		if ws := r.workspaces[id]; ws != nil {
			out = append(out, ws)
		}
	}
	return out
}

// Outputs returns every enabled output.
func (r *Root) Outputs() []*Output {
	out := make([]*Output, 0, len(r.pending.Outputs))
	for _, id := range r.pending.Outputs {
		if o := r.outputs[id]; o != nil {
			out = append(out, o)
		}
	}
	return out
}

// ActiveWorkspace returns the pending active workspace, or nil.
func (r *Root) ActiveWorkspace() *Workspace {
	return r.workspaces[r.pending.ActiveWorkspace]
}

// ActiveOutput returns the pending active output, or nil.
func (r *Root) ActiveOutput() *Output {
	return r.outputs[r.pending.ActiveOutput]
}

// FocusedWindow returns the pending focused window, or nil.
func (r *Root) FocusedWindow() *Window {
	return r.windows[r.pending.FocusedWindow]
}

// OnDestroy registers fn to run synchronously whenever an entity begins
// destruction, before it can be freed.
func (r *Root) OnDestroy(fn func(NodeRef)) {
	r.destroyListeners = append(r.destroyListeners, fn)
}

// OnEvent registers fn to receive tree change notifications.
func (r *Root) OnEvent(fn func(events.Event)) {
	r.eventListeners = append(r.eventListeners, fn)
}

func (r *Root) emit(ev events.Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, fn := range r.eventListeners {
		fn(ev)
	}
}

func (r *Root) notifyDestroy(ref NodeRef) {
	for _, fn := range r.destroyListeners {
		fn(ref)
	}
}

func (r *Root) setDirty() {
	if r.dirty {
		return
	}
	r.dirty = true
	r.dirtyNodes = append(r.dirtyNodes, RootRef)
}

func (r *Root) markDirty(ref NodeRef) {
	var flag *bool
	switch ref.Kind {
	case KindRoot:
		r.setDirty()
		return
	case KindOutput:
		if o := r.outputs[OutputID(ref.ID)]; o != nil {
			flag = &o.dirty
		}
	case KindWorkspace:
		if ws := r.workspaces[WorkspaceID(ref.ID)]; ws != nil {
			flag = &ws.dirty
		}
	case KindColumn:
		if c := r.columns[ColumnID(ref.ID)]; c != nil {
			flag = &c.dirty
		}
	case KindWindow:
		if w := r.windows[WindowID(ref.ID)]; w != nil {
			flag = &w.dirty
		}
	}
	if flag == nil || *flag {
		return
	}
	*flag = true
	r.dirtyNodes = append(r.dirtyNodes, ref)
	r.setDirty()
}

func (r *Root) queueArrange(ws *Workspace) {
	if ws == nil || ws.needsArrange {
		return
	}
	ws.needsArrange = true
	r.arrangeQueue = append(r.arrangeQueue, ws.id)
	r.markDirty(ws.id.Ref())
}

// SetFocusedWindow makes w the focused window, updating the active column,
// workspace and output to match. A nil w clears window focus.
func (r *Root) SetFocusedWindow(w *Window) {
	if w == nil {
		if r.pending.FocusedWindow != 0 {
			r.pending.FocusedWindow = 0
			r.reconcileFocus()
			r.setDirty()
		}
		return
	}
	if w.pending.Dead {
		return
	}

	ws := w.Workspace()
	if ws == nil {
		r.fatalf(w.id.Ref(), "cannot focus a detached window")
	}

	prev := r.pending.FocusedWindow
	r.pending.FocusedWindow = w.id
	if c := w.Column(); c != nil {
		c.SetActiveChild(w)
		ws.SetActiveColumn(c)
		ws.setFocusMode(FocusTiling)
	} else {
		ws.setActiveFloating(w)
		ws.setFocusMode(FocusFloating)
	}
	r.setActiveWorkspace(ws)
	w.SetUrgent(false)
	r.reconcileFocus()
	r.setDirty()

	if prev != w.id {
		r.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeFocus, ID: uint64(w.id), Name: w.Title()})
	}
}

// SetFocusedLayer gives exclusive keyboard input to an overlay-shell
// surface. Nil releases it.
func (r *Root) SetFocusedLayer(o Overlay) {
	r.pending.FocusedLayer = o
	r.setDirty()
}

// SetFocusedSurface pins keyboard focus to o regardless of windows and
// layers. Nil releases it.
func (r *Root) SetFocusedSurface(o Overlay) {
	r.pending.FocusedSurface = o
	r.setDirty()
}

func (r *Root) setActiveWorkspace(ws *Workspace) {
	if ws == nil {
		return
	}
	prev := r.pending.ActiveWorkspace
	if prev != ws.id {
		r.pending.ActiveWorkspace = ws.id
		r.setDirty()
	}
	if out := ws.Output(); out != nil {
		if r.pending.ActiveOutput != out.id {
			r.pending.ActiveOutput = out.id
			r.setDirty()
		}
		out.setActiveWorkspace(ws)
	}
	if prev != ws.id {
		if old := r.workspaces[prev]; old != nil {
			old.destroyIfUnused()
		}
		r.emit(events.Event{Type: events.TypeWorkspace, Change: events.ChangeFocus, ID: uint64(ws.id), Name: ws.pending.Name})
	}
}

// reconcileFocus recomputes every cached focused flag from the root's
// focused window.
func (r *Root) reconcileFocus() {
	for _, id := range r.pending.Workspaces {
		if ws := r.workspaces[id]; ws != nil {
			ws.reconcile()
		}
	}
}

// reconcile recomputes all cached back-references and flags.
func (r *Root) reconcile() {
	for _, id := range r.pending.Outputs {
		if out := r.outputs[id]; out != nil && out.pending.ActiveWorkspace != 0 {
			if ws := r.workspaces[out.pending.ActiveWorkspace]; ws == nil || ws.pending.Output != id {
				out.setActiveWorkspace(out.firstWorkspace())
			}
		}
	}
	r.reconcileFocus()
}

// Box returns the union of all output boxes.
func (r *Root) Box() layout.Box {
	var box layout.Box
	for _, id := range r.pending.Outputs {
		if out := r.outputs[id]; out != nil {
			box = box.Union(out.pending.Box)
		}
	}
	return box
}

func removeID[T comparable](list []T, id T) ([]T, int) {
	i := slices.Index(list, id)
	if i < 0 {
		return list, -1
	}
	return slices.Delete(list, i, i+1), i
}
