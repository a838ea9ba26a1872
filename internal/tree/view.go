package tree

import "tessera/internal/events"

// MapOptions are the client's placement wishes for a new window.
type MapOptions struct {
	// Workspace, when set, overrides every other placement rule.
	Workspace  string
	Floating   bool
	Fullscreen bool
	// Natural content size requested by the client, used when floating.
	Width, Height float64
}

// MapWindow creates a window for s and places it. The workspace is taken
// from opts, then from the PID table, then the active workspace. Floating
// windows are centred; tiled windows go after the active tiling window or
// into a new column. The window is focused when it opens on the active
// workspace and not underneath a fullscreen window.
func (r *Root) MapWindow(s Surface, opts MapOptions) *Window {
	ws := r.placementWorkspace(s, opts)
	if ws == nil {
		r.fatalf(RootRef, "no workspace to map a window on")
	}

	w := r.NewWindow(s)
	w.SetNaturalSize(opts.Width, opts.Height)
	coveredByFullscreen := ws.pending.Fullscreen != 0 || r.pending.FullscreenGlobal != 0

	if opts.Floating {
		ws.AddFloating(w)
		w.pending.Border = r.opts.FloatingBorder
		w.pending.BorderThickness = r.opts.FloatingBorderThickness
		r.Arrange()
		w.applyDefaultFloatingSize(ws)
	} else {
		ws.placeTiling(w)
	}
	if opts.Fullscreen {
		w.SetFullscreen(FullscreenWorkspace)
		coveredByFullscreen = false
	}

	if ws.id == r.pending.ActiveWorkspace && !coveredByFullscreen {
		r.SetFocusedWindow(w)
	}

	r.log.Debug("window mapped", "window", uint64(w.id), "workspace", ws.pending.Name, "floating", opts.Floating, "pid", w.pid)
	r.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeNew, ID: uint64(w.id), Name: w.Title()})
	return w
}

func (r *Root) placementWorkspace(s Surface, opts MapOptions) *Workspace {
	name := opts.Workspace
	if name == "" && s != nil {
		name, _ = r.WorkspaceForPID(s.PID())
	}
	if name != "" {
		if ws := r.WorkspaceByName(name); ws != nil {
			return ws
		}
		return r.NewWorkspace(name, r.ActiveOutput())
	}
	return r.ActiveWorkspace()
}

// UnmapWindow destroys w and cleans up what it leaves behind: an empty
// column is destroyed, focus moves to the workspace's next active window
// and the PID table entry goes once the process has no windows left.
func (r *Root) UnmapWindow(w *Window) {
	if w == nil || w.pending.Dead {
		return
	}
	c := w.Column()
	ws := w.Workspace()
	wasFocused := r.pending.FocusedWindow == w.id

	w.BeginDestroy()
	if c != nil {
		c.DestroyIfEmpty()
	}
	if ws != nil && !ws.pending.Dead {
		if wasFocused && ws.id == r.pending.ActiveWorkspace {
			r.SetFocusedWindow(ws.ActiveWindow())
		}
		r.queueArrange(ws)
		ws.destroyIfUnused()
	}
	r.forgetPIDIfLast(w.pid)

	r.log.Debug("window unmapped", "window", uint64(w.id))
	r.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeClose, ID: uint64(w.id), Name: w.Title()})
}

// SwitchToWorkspace shows the named workspace on the active output,
// creating it if needed, and focuses its active window.
func (r *Root) SwitchToWorkspace(name string) *Workspace {
	ws := r.WorkspaceByName(name)
	if ws == nil {
		ws = r.NewWorkspace(name, r.ActiveOutput())
	}
	if ws.Output() == nil {
		if out := r.ActiveOutput(); out != nil {
			ws.setOutput(out.id)
		}
	}
	if out := ws.Output(); out != nil {
		prev := out.ActiveWorkspace()
		out.setActiveWorkspace(ws)
		if prev != nil && prev != ws {
			defer prev.destroyIfUnused()
		}
	}
	if w := ws.ActiveWindow(); w != nil {
		r.SetFocusedWindow(w)
	} else {
		if r.pending.FocusedWindow != 0 {
			r.pending.FocusedWindow = 0
			r.setDirty()
		}
		r.setActiveWorkspace(ws)
		r.reconcileFocus()
	}
	r.queueArrange(ws)
	return ws
}

// MoveWindowToWorkspace moves w onto the named workspace, creating it if
// needed. Tiled windows join the destination's tiling layout, floating
// windows keep floating. Focus stays on the source workspace.
func (r *Root) MoveWindowToWorkspace(w *Window, name string) *Workspace {
	if w == nil || w.pending.Dead {
		return nil
	}
	src := w.Workspace()
	dest := r.WorkspaceByName(name)
	if dest == nil {
		dest = r.NewWorkspace(name, r.ActiveOutput())
	}
	if dest == src {
		return dest
	}
	if w.pending.Fullscreen == FullscreenWorkspace {
		w.SetFullscreen(FullscreenNone)
	}

	wasFocused := r.pending.FocusedWindow == w.id
	floating := w.Floating()
	c := w.Column()
	w.Detach()
	if c != nil {
		c.DestroyIfEmpty()
	}
	if floating {
		dest.AddFloating(w)
	} else {
		dest.placeTiling(w)
	}

	if wasFocused {
		r.pending.FocusedWindow = 0
		r.setDirty()
		if src != nil {
			if next := src.ActiveWindow(); next != nil {
				r.SetFocusedWindow(next)
			}
		}
		r.reconcileFocus()
	}
	if src != nil {
		r.queueArrange(src)
		src.destroyIfUnused()
	}
	r.emit(events.Event{Type: events.TypeWindow, Change: events.ChangeMove, ID: uint64(w.id), Name: w.Title(), Detail: name})
	return dest
}
