package tree

import (
	"strconv"

	"tessera/internal/events"
	"tessera/internal/layout"
)

// OutputState is the triple-buffered part of an Output.
type OutputState struct {
	Box             layout.Box
	ActiveWorkspace WorkspaceID
	Dead            bool
}

// Output is a display. Workspace membership is derived from each
// workspace's Output handle.
type Output struct {
	root *Root
	id   OutputID
	name string

	pending, committed, current OutputState
	dirty                       bool
	txnRefs                     int
}

// AddOutput registers a new display. Detached workspaces are adopted; when
// the output ends up without a workspace a fresh one is created.
func (r *Root) AddOutput(name string, box layout.Box) *Output {
	out := &Output{root: r, id: OutputID(r.allocID()), name: name}
	out.pending.Box = box
	r.outputs[out.id] = out
	r.pending.Outputs = append(r.pending.Outputs, out.id)
	r.markDirty(out.id.Ref())

	for _, id := range r.pending.Workspaces {
		if ws := r.workspaces[id]; ws != nil && ws.pending.Output == 0 {
			ws.setOutput(out.id)
			if out.pending.ActiveWorkspace == 0 {
				out.setActiveWorkspace(ws)
			}
		}
	}
	if out.pending.ActiveWorkspace == 0 {
		r.NewWorkspace(r.nextWorkspaceName(), out)
	}
	if r.pending.ActiveOutput == 0 {
		r.pending.ActiveOutput = out.id
		r.setActiveWorkspace(out.ActiveWorkspace())
	}
	r.log.Info("output added", "output", name, "width", box.Width, "height", box.Height)
	r.emit(events.Event{Type: events.TypeOutput, Change: events.ChangeNew, ID: uint64(out.id), Name: name})
	return out
}

// OutputByName finds a live output.
func (r *Root) OutputByName(name string) *Output {
	for _, id := range r.pending.Outputs {
		if out := r.outputs[id]; out != nil && out.name == name {
			return out
		}
	}
	return nil
}

// RemoveOutput takes a display away. Its workspaces move to the first
// remaining output, or become detached when none is left.
func (r *Root) RemoveOutput(out *Output) {
	if out == nil || out.pending.Dead {
		return
	}
	r.notifyDestroy(out.id.Ref())
	r.pending.Outputs, _ = removeID(r.pending.Outputs, out.id)

	var dest *Output
	if len(r.pending.Outputs) > 0 {
		dest = r.outputs[r.pending.Outputs[0]]
	}
	for _, ws := range out.Workspaces() {
		for _, w := range ws.allWindows() {
			if w.pending.Fullscreen == FullscreenGlobal {
				w.SetFullscreen(FullscreenNone)
			}
		}
		if dest != nil {
			ws.setOutput(dest.id)
		} else {
			ws.setOutput(0)
		}
	}

	out.pending.Dead = true
	out.pending.ActiveWorkspace = 0
	r.markDirty(out.id.Ref())

	if r.pending.ActiveOutput == out.id {
		r.pending.ActiveOutput = 0
		r.setDirty()
		if dest != nil {
			r.pending.ActiveOutput = dest.id
			if active := r.ActiveWorkspace(); active != nil && active.pending.Output == dest.id {
				dest.setActiveWorkspace(active)
			}
		}
	}
	r.reconcile()
	r.log.Info("output removed", "output", out.name)
	r.emit(events.Event{Type: events.TypeOutput, Change: events.ChangeClose, ID: uint64(out.id), Name: out.name})
}

// SetOutputBox moves or resizes a display and re-arranges its workspaces.
func (r *Root) SetOutputBox(out *Output, box layout.Box) {
	if out == nil || out.pending.Dead || out.pending.Box == box {
		return
	}
	out.pending.Box = box
	r.markDirty(out.id.Ref())
	for _, ws := range out.Workspaces() {
		r.queueArrange(ws)
	}
	if r.pending.FullscreenGlobal != 0 {
		if g := r.windows[r.pending.FullscreenGlobal]; g != nil {
			r.queueArrange(g.Workspace())
		}
	}
}

// ClosestOutput returns the output nearest to the point, or nil when there
// are no outputs.
func (r *Root) ClosestOutput(x, y float64) *Output {
	var best *Output
	bestDist := 0.0
	for _, id := range r.pending.Outputs {
		out := r.outputs[id]
		if out == nil {
			continue
		}
		d := out.pending.Box.DistanceSquared(x, y)
		if best == nil || d < bestDist {
			best, bestDist = out, d
		}
	}
	return best
}

// OutputAt returns the output containing the point, or nil.
func (r *Root) OutputAt(x, y float64) *Output {
	for _, id := range r.pending.Outputs {
		if out := r.outputs[id]; out != nil && out.pending.Box.Contains(x, y) {
			return out
		}
	}
	return nil
}

// ID returns the output's handle.
func (o *Output) ID() OutputID { return o.id }

// Name returns the connector name.
func (o *Output) Name() string { return o.name }

// Pending returns a copy of the pending state.
func (o *Output) Pending() OutputState { return o.pending }

// Committed returns a copy of the committed state.
func (o *Output) Committed() OutputState { return o.committed }

// Current returns a copy of the visible state.
func (o *Output) Current() OutputState { return o.current }

// Box returns the pending layout box.
func (o *Output) Box() layout.Box { return o.pending.Box }

// ActiveWorkspace returns the workspace shown on the output.
func (o *Output) ActiveWorkspace() *Workspace {
	return o.root.workspaces[o.pending.ActiveWorkspace]
}

// Workspaces returns the live workspaces assigned to the output.
func (o *Output) Workspaces() []*Workspace {
	var out []*Workspace
	for _, id := range o.root.pending.Workspaces {
		if ws := o.root.workspaces[id]; ws != nil && ws.pending.Output == o.id {
			out = append(out, ws)
		}
	}
	return out
}

func (o *Output) firstWorkspace() *Workspace {
	if list := o.Workspaces(); len(list) > 0 {
		return list[0]
	}
	return nil
}

func (o *Output) setActiveWorkspace(ws *Workspace) {
	var id WorkspaceID
	if ws != nil {
		id = ws.id
	}
	if o.pending.ActiveWorkspace == id {
		return
	}
	o.pending.ActiveWorkspace = id
	o.root.markDirty(o.id.Ref())
}

func (r *Root) nextWorkspaceName() string {
	for i := 1; ; i++ {
		name := strconv.Itoa(i)
		if r.WorkspaceByName(name) == nil {
			return name
		}
	}
}

func (ws *Workspace) allWindows() []*Window {
	var out []*Window
	for _, c := range ws.Columns() {
		out = append(out, c.Children()...)
	}
	return append(out, ws.FloatingWindows()...)
}

func (o *Output) considerDestroy() {
	if !o.pending.Dead || o.dirty || o.txnRefs > 0 {
		return
	}
	delete(o.root.outputs, o.id)
}
