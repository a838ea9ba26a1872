// pattern: Functional Core

package tree

import (
	"math"
	"time"

	"tessera/internal/events"
	"tessera/internal/layout"
)

// BorderMode selects how a window is decorated.
type BorderMode int

const (
	BorderNone BorderMode = iota
	BorderPixel
	BorderNormal
	BorderCSD
)

func (b BorderMode) String() string {
	switch b {
	case BorderNone:
		return "none"
	case BorderPixel:
		return "pixel"
	case BorderNormal:
		return "normal"
	case BorderCSD:
		return "csd"
	}
	return "unknown"
}

// FullscreenMode is the fullscreen scope of a window.
type FullscreenMode int

const (
	FullscreenNone FullscreenMode = iota
	FullscreenWorkspace
	FullscreenGlobal
)

func (f FullscreenMode) String() string {
	switch f {
	case FullscreenNone:
		return "none"
	case FullscreenWorkspace:
		return "workspace"
	case FullscreenGlobal:
		return "global"
	}
	return "unknown"
}

// minTiledSize is the smallest width or height an interactive tiled resize
// leaves a window or column.
const minTiledSize = 50

// Edge is a bit set of window edges, used for resizing.
type Edge uint8

const (
	EdgeNone   Edge = 0
	EdgeTop    Edge = 1 << 0
	EdgeBottom Edge = 1 << 1
	EdgeLeft   Edge = 1 << 2
	EdgeRight  Edge = 1 << 3
)

// WindowState is the triple-buffered part of a Window.
type WindowState struct {
	// Box includes decorations; Content is what the client draws into.
	Box     layout.Box
	Content layout.Box

	Border          BorderMode
	BorderThickness float64
	Fullscreen      FullscreenMode

	// Cached back-references, owned by reconciliation. A floating window
	// has a Workspace and no Column.
	Column    ColumnID
	Workspace WorkspaceID
	Output    OutputID

	IsFirstChild bool
	IsLastChild  bool
	Focused      bool

	Resizing bool
	Urgent   bool
	Dead     bool
}

// Floating reports whether the state places the window in a floating list.
func (s WindowState) Floating() bool {
	return s.Workspace != 0 && s.Column == 0
}

// Window is a leaf of the tree, backed by an optional client surface.
type Window struct {
	root *Root
	id   WindowID

	pending, committed, current WindowState
	dirty                       bool
	txnRefs                     int

	surface Surface
	pid     int

	heightFraction float64
	naturalWidth   float64
	naturalHeight  float64
	// Floating geometry restored when fullscreen ends.
	savedBox    layout.Box
	urgentSince time.Time

	configured    bool
	lastConfigure ConfigureRequest
}

// NewWindow creates a detached window for surface, which may be nil.
func (r *Root) NewWindow(s Surface) *Window {
	w := &Window{
		root:    r,
		id:      WindowID(r.allocID()),
		surface: s,
	}
	w.pending.Border = r.opts.Border
	w.pending.BorderThickness = r.opts.BorderThickness
	if s != nil {
		w.pid = s.PID()
	}
	r.windows[w.id] = w
	r.markDirty(w.id.Ref())
	return w
}

// ID returns the window's handle.
func (w *Window) ID() WindowID { return w.id }

// Pending returns a copy of the pending state.
func (w *Window) Pending() WindowState { return w.pending }

// Committed returns a copy of the committed state.
func (w *Window) Committed() WindowState { return w.committed }

// Current returns a copy of the visible state.
func (w *Window) Current() WindowState { return w.current }

// Surface returns the client surface, or nil.
func (w *Window) Surface() Surface { return w.surface }

// PID returns the owning process id, or 0.
func (w *Window) PID() int { return w.pid }

// Dead reports whether destruction has begun.
func (w *Window) Dead() bool { return w.pending.Dead }

// Title returns the surface title, or "".
func (w *Window) Title() string {
	if w.surface == nil {
		return ""
	}
	return w.surface.Title()
}

// AppID returns the surface app id, or "".
func (w *Window) AppID() string {
	if w.surface == nil {
		return ""
	}
	return w.surface.AppID()
}

// Floating reports whether the window is in a floating list.
func (w *Window) Floating() bool { return w.pending.Floating() }

// Column returns the owning column, or nil if floating or detached.
func (w *Window) Column() *Column { return w.root.columns[w.pending.Column] }

// Workspace returns the owning workspace, or nil if detached.
func (w *Window) Workspace() *Workspace { return w.root.workspaces[w.pending.Workspace] }

// Output returns the output the window is on, or nil.
func (w *Window) Output() *Output { return w.root.outputs[w.pending.Output] }

// HeightFraction returns the share of its column the window occupies.
func (w *Window) HeightFraction() float64 { return w.heightFraction }

// UrgentSince returns when the window became urgent, or the zero time.
func (w *Window) UrgentSince() time.Time { return w.urgentSince }

func (w *Window) setBox(box layout.Box) {
	if w.pending.Box == box {
		return
	}
	w.pending.Box = box
	w.root.markDirty(w.id.Ref())
}

func (w *Window) setContent(box layout.Box) {
	if w.pending.Content == box {
		return
	}
	w.pending.Content = box
	w.root.markDirty(w.id.Ref())
}

// SetNaturalSize records the size the client asked for. Floating windows
// use it when first placed.
func (w *Window) SetNaturalSize(width, height float64) {
	w.naturalWidth = width
	w.naturalHeight = height
}

// SetResizing flags an interactive resize so the client can optimise.
func (w *Window) SetResizing(resizing bool) {
	if w == nil || w.pending.Dead || w.pending.Resizing == resizing {
		return
	}
	w.pending.Resizing = resizing
	w.root.markDirty(w.id.Ref())
}

// SetUrgent sets or clears the urgency hint. The focused window never
// becomes urgent.
func (w *Window) SetUrgent(urgent bool) {
	if w.pending.Dead || w.pending.Urgent == urgent {
		return
	}
	if urgent && w.root.pending.FocusedWindow == w.id {
		return
	}
	w.pending.Urgent = urgent
	if urgent {
		w.urgentSince = time.Now()
	} else {
		w.urgentSince = time.Time{}
	}
	w.root.markDirty(w.id.Ref())
	if ws := w.Workspace(); ws != nil {
		w.root.markDirty(ws.id.Ref())
	}
	w.root.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeUrgent, ID: uint64(w.id), Name: w.Title()})
}

// SetBorder changes the decoration. Thickness below zero keeps the current
// thickness.
func (w *Window) SetBorder(mode BorderMode, thickness float64) {
	if w.pending.Dead {
		return
	}
	if thickness < 0 {
		thickness = w.pending.BorderThickness
	}
	if w.pending.Border == mode && w.pending.BorderThickness == thickness {
		return
	}
	w.pending.Border = mode
	w.pending.BorderThickness = thickness
	w.root.markDirty(w.id.Ref())
	w.root.queueArrange(w.Workspace())
}

// contentFor computes the content box inside box for the window's
// decoration.
func (w *Window) contentFor(box layout.Box) layout.Box {
	if w.pending.Fullscreen != FullscreenNone {
		return box
	}
	t := w.pending.BorderThickness
	switch w.pending.Border {
	case BorderPixel:
		return layout.Shrink(box, t)
	case BorderNormal:
		return layout.Inset(box, t, t, w.root.opts.TitlebarHeight, t)
	default:
		return box
	}
}

// boxFor is the inverse of contentFor.
func (w *Window) boxFor(content layout.Box) layout.Box {
	t := w.pending.BorderThickness
	switch w.pending.Border {
	case BorderPixel:
		return layout.Box{X: content.X - t, Y: content.Y - t, Width: content.Width + 2*t, Height: content.Height + 2*t}
	case BorderNormal:
		th := w.root.opts.TitlebarHeight
		return layout.Box{X: content.X - t, Y: content.Y - th, Width: content.Width + 2*t, Height: content.Height + th + t}
	default:
		return content
	}
}

// Detach removes the window from its column or floating list without
// reattaching it anywhere.
func (w *Window) Detach() {
	if c := w.Column(); c != nil {
		c.RemoveChild(w)
		return
	}
	if ws := w.Workspace(); ws != nil {
		ws.RemoveFloating(w)
		return
	}
	w.reconcileDetached()
}

func (w *Window) reconcileDetached() {
	w.reconcile(0, 0, 0, false, false)
}

func (w *Window) reconcile(c ColumnID, ws WorkspaceID, out OutputID, first, last bool) {
	focused := ws != 0 && w.root.pending.FocusedWindow == w.id
	s := &w.pending
	if s.Column == c && s.Workspace == ws && s.Output == out &&
		s.IsFirstChild == first && s.IsLastChild == last && s.Focused == focused {
		return
	}
	s.Column, s.Workspace, s.Output = c, ws, out
	s.IsFirstChild, s.IsLastChild = first, last
	s.Focused = focused
	w.root.markDirty(w.id.Ref())
}

// SetFullscreen changes the window's fullscreen mode. Any other window
// holding a conflicting fullscreen slot is cleared first, so two windows
// never share one.
func (w *Window) SetFullscreen(mode FullscreenMode) {
	if w.pending.Dead || w.pending.Fullscreen == mode {
		return
	}
	r := w.root
	ws := w.Workspace()
	if ws == nil && mode != FullscreenNone {
		return
	}

	switch mode {
	case FullscreenWorkspace:
		if g := r.windows[r.pending.FullscreenGlobal]; g != nil && g != w {
			g.SetFullscreen(FullscreenNone)
		}
		if other := r.windows[ws.pending.Fullscreen]; other != nil && other != w {
			other.SetFullscreen(FullscreenNone)
		}
	case FullscreenGlobal:
		if g := r.windows[r.pending.FullscreenGlobal]; g != nil && g != w {
			g.SetFullscreen(FullscreenNone)
		}
		for _, id := range r.pending.Workspaces {
			if other := r.windows[r.workspaces[id].pending.Fullscreen]; other != nil && other != w {
				other.SetFullscreen(FullscreenNone)
			}
		}
	}

	old := w.pending.Fullscreen
	w.clearFullscreenSlot()

	if old == FullscreenNone && w.Floating() {
		w.savedBox = w.pending.Box
	}
	w.pending.Fullscreen = mode
	switch mode {
	case FullscreenWorkspace:
		ws.pending.Fullscreen = w.id
		r.markDirty(ws.id.Ref())
	case FullscreenGlobal:
		r.pending.FullscreenGlobal = w.id
		r.setDirty()
	case FullscreenNone:
		if w.Floating() && !w.savedBox.Empty() {
			w.setBox(w.savedBox)
		}
	}
	r.markDirty(w.id.Ref())
	r.queueArrange(ws)
	r.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeFullscreen, ID: uint64(w.id), Name: w.Title(), Detail: mode.String()})
}

func (w *Window) clearFullscreenSlot() {
	r := w.root
	if r.pending.FullscreenGlobal == w.id {
		r.pending.FullscreenGlobal = 0
		r.setDirty()
	}
	for _, id := range r.pending.Workspaces {
		ws := r.workspaces[id]
		if ws != nil && ws.pending.Fullscreen == w.id {
			ws.pending.Fullscreen = 0
			r.markDirty(ws.id.Ref())
			r.queueArrange(ws)
		}
	}
}

// MoveToFloating takes a tiled window out of its column and floats it on
// the same workspace at its default floating size.
func (w *Window) MoveToFloating() {
	if w.pending.Dead || w.Floating() {
		return
	}
	ws := w.Workspace()
	if ws == nil {
		return
	}
	focused := w.root.pending.FocusedWindow == w.id
	c := w.Column()
	w.Detach()
	if c != nil {
		c.DestroyIfEmpty()
	}
	ws.AddFloating(w)
	w.pending.Border = w.root.opts.FloatingBorder
	w.pending.BorderThickness = w.root.opts.FloatingBorderThickness
	w.applyDefaultFloatingSize(ws)
	if focused {
		w.root.SetFocusedWindow(w)
	}
	w.root.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeFloating, ID: uint64(w.id), Name: w.Title(), Detail: "floating"})
}

// MoveToTiling puts a floating window back into the tiling layout, after
// the active window of the workspace's active column, or in a new column.
func (w *Window) MoveToTiling() {
	if w.pending.Dead || !w.Floating() {
		return
	}
	ws := w.Workspace()
	focused := w.root.pending.FocusedWindow == w.id
	w.Detach()
	w.pending.Border = w.root.opts.Border
	w.pending.BorderThickness = w.root.opts.BorderThickness
	ws.placeTiling(w)
	if focused {
		w.root.SetFocusedWindow(w)
	}
	w.root.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeFloating, ID: uint64(w.id), Name: w.Title(), Detail: "tiling"})
}

// floatingConstraints returns the min and max floating content sizes on ws.
func (w *Window) floatingConstraints(ws *Workspace) (minW, maxW, minH, maxH float64) {
	o := w.root.opts
	minW, minH = o.FloatingMinWidth, o.FloatingMinHeight
	maxW, maxH = o.FloatingMaxWidth, o.FloatingMaxHeight
	if maxW <= 0 {
		maxW = ws.pending.Box.Width
	}
	if maxH <= 0 {
		maxH = ws.pending.Box.Height
	}
	maxW = math.Max(maxW, minW)
	maxH = math.Max(maxH, minH)
	return minW, maxW, minH, maxH
}

func (w *Window) applyDefaultFloatingSize(ws *Workspace) {
	minW, maxW, minH, maxH := w.floatingConstraints(ws)
	cw, ch := w.naturalWidth, w.naturalHeight
	if cw <= 0 || ch <= 0 {
		cw = ws.pending.Box.Width * 0.5
		ch = ws.pending.Box.Height * 0.75
	}
	cw = layout.Clamp(cw, minW, maxW)
	ch = layout.Clamp(ch, minH, maxH)
	content := centered(ws.pending.Box, cw, ch)
	w.setBox(w.boxFor(content))
	w.setContent(content)
}

// FloatingResize sets a floating window's outer box, clamping the content
// to the floating size limits.
func (w *Window) FloatingResize(box layout.Box) {
	ws := w.Workspace()
	if w.pending.Dead || !w.Floating() || ws == nil {
		return
	}
	minW, maxW, minH, maxH := w.floatingConstraints(ws)
	content := w.contentFor(box)
	content.Width = layout.Clamp(content.Width, minW, maxW)
	content.Height = layout.Clamp(content.Height, minH, maxH)
	w.setBox(w.boxFor(content))
	w.setContent(content)
}

// FloatingMoveTo moves a floating window so its top-left corner is at
// (x, y). If out is not the window's output, the window moves to out's
// active workspace.
func (w *Window) FloatingMoveTo(out *Output, x, y float64) {
	if w.pending.Dead || !w.Floating() {
		return
	}
	if out != nil && out.id != w.pending.Output {
		if dest := out.ActiveWorkspace(); dest != nil {
			focused := w.root.pending.FocusedWindow == w.id
			w.Detach()
			dest.AddFloating(w)
			if focused {
				w.root.SetFocusedWindow(w)
			}
		}
	}
	box := w.pending.Box
	box.X, box.Y = x, y
	w.setBox(box)
	w.setContent(w.contentFor(box))
}

// RaiseFloating moves a floating window to the top of its workspace's
// stacking order.
func (w *Window) RaiseFloating() {
	ws := w.Workspace()
	if w.pending.Dead || !w.Floating() || ws == nil {
		return
	}
	list := ws.pending.Floating
	if len(list) > 0 && list[len(list)-1] == w.id {
		return
	}
	list, _ = removeID(list, w.id)
	ws.pending.Floating = append(list, w.id)
	ws.reconcile()
	w.root.markDirty(ws.id.Ref())
}

// ResizeTiled grows (amount > 0) or shrinks the window's tiled edge against
// the adjacent column or sibling window. It reports false when there is no
// neighbour on that edge.
func (w *Window) ResizeTiled(edge Edge, amount float64) bool {
	c := w.Column()
	if w.pending.Dead || c == nil || amount == 0 {
		return false
	}
	switch {
	case edge&(EdgeLeft|EdgeRight) != 0:
		ws := c.Workspace()
		sib := ws.tilingNeighbour(c, edge&EdgeLeft != 0)
		if sib == nil {
			return false
		}
		total := c.pending.Box.Width + sib.pending.Box.Width
		fracs := c.widthFraction + sib.widthFraction
		if total <= 0 {
			return false
		}
		floor := math.Min(minTiledSize, total/2)
		size := layout.Clamp(c.pending.Box.Width+amount, floor, total-floor)
		c.widthFraction = fracs * size / total
		sib.widthFraction = fracs - c.widthFraction
		w.root.queueArrange(ws)
		return true
	case edge&(EdgeTop|EdgeBottom) != 0:
		sib := c.childNeighbour(w, edge&EdgeTop != 0)
		if sib == nil {
			return false
		}
		total := w.pending.Box.Height + sib.pending.Box.Height
		fracs := w.heightFraction + sib.heightFraction
		if total <= 0 {
			return false
		}
		floor := math.Min(minTiledSize, total/2)
		size := layout.Clamp(w.pending.Box.Height+amount, floor, total-floor)
		w.heightFraction = fracs * size / total
		sib.heightFraction = fracs - w.heightFraction
		w.root.queueArrange(c.Workspace())
		return true
	}
	return false
}

// Close asks the client to close. The window is destroyed when the
// surface unmaps.
func (w *Window) Close() {
	if w.surface != nil && !w.pending.Dead {
		w.surface.Close()
	}
}

// BeginDestroy marks the window dead, tells every listener that may hold a
// reference to drop it, then detaches it. The window is freed once no
// transaction references it.
func (w *Window) BeginDestroy() {
	if w.pending.Dead {
		return
	}
	r := w.root
	r.notifyDestroy(w.id.Ref())

	if w.pending.Fullscreen != FullscreenNone {
		w.clearFullscreenSlot()
		w.pending.Fullscreen = FullscreenNone
	}
	w.pending.Dead = true
	if r.pending.FocusedWindow == w.id {
		r.pending.FocusedWindow = 0
		r.setDirty()
	}
	w.Detach()
	r.markDirty(w.id.Ref())
}

// considerDestroy frees the window once it is dead, its final state has
// been published and no transaction still references it.
func (w *Window) considerDestroy() {
	if !w.pending.Dead || w.dirty || w.txnRefs > 0 {
		return
	}
	delete(w.root.windows, w.id)
}
