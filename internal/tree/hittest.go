package tree

import "tessera/internal/events"

// WindowAt returns the visible window under (x, y). It reads current
// state, since that is what the user is pointing at. Stacking order is
// global fullscreen, workspace fullscreen, floating windows from the top,
// then tiled windows.
func (r *Root) WindowAt(x, y float64) *Window {
	if g := r.windows[r.current.FullscreenGlobal]; g != nil && g.current.Box.Contains(x, y) {
		return g
	}
	var out *Output
	for _, id := range r.current.Outputs {
		if o := r.outputs[id]; o != nil && o.current.Box.Contains(x, y) {
			out = o
			break
		}
	}
	if out == nil {
		return nil
	}
	ws := r.workspaces[out.current.ActiveWorkspace]
	if ws == nil {
		return nil
	}
	if fs := r.windows[ws.current.Fullscreen]; fs != nil {
		return fs
	}
	for i := len(ws.current.Floating) - 1; i >= 0; i-- {
		if w := r.windows[ws.current.Floating[i]]; w != nil && w.current.Box.Contains(x, y) {
			return w
		}
	}
	for _, cID := range ws.current.Tiling {
		c := r.columns[cID]
		if c == nil || !c.current.Box.Contains(x, y) {
			continue
		}
		if c.current.Layout == LayoutStacked {
			return r.windows[c.current.ActiveChild]
		}
		for _, wID := range c.current.Children {
			if w := r.windows[wID]; w != nil && w.current.Box.Contains(x, y) {
				return w
			}
		}
	}
	return nil
}

// MoveWindowToColumn moves w into c directly after the window after, or
// to the top of c when after is nil. w keeps focus if it had it.
func (r *Root) MoveWindowToColumn(w *Window, c *Column, after *Window) {
	if w == nil || c == nil || w.pending.Dead || c.pending.Dead || after == w {
		return
	}
	focused := r.pending.FocusedWindow == w.id
	src := w.Column()
	srcWs := w.Workspace()
	if w.pending.Fullscreen == FullscreenWorkspace && srcWs != c.Workspace() {
		w.SetFullscreen(FullscreenNone)
	}
	if w.Floating() {
		w.pending.Border = r.opts.Border
		w.pending.BorderThickness = r.opts.BorderThickness
	}

	w.Detach()
	if src != nil && src != c {
		src.DestroyIfEmpty()
	}
	index := 0
	if after != nil {
		if i := c.IndexOf(after); i >= 0 {
			index = i + 1
		}
	}
	c.InsertChild(index, w)

	if focused {
		r.SetFocusedWindow(w)
	}
	if srcWs != nil {
		r.queueArrange(srcWs)
		srcWs.destroyIfUnused()
	}
	r.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeMove, ID: uint64(w.id), Name: w.Title()})
}
