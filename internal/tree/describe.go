package tree

import (
	"tessera/internal/events"
	"tessera/internal/layout"
)

func rect(b layout.Box) events.Rect {
	return events.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// Describe renders the visible (current) tree for IPC clients. Entities
// freed since their last publish are skipped.
func (r *Root) Describe() events.TreeNode {
	cur := r.current
	node := events.TreeNode{ID: 0, Type: "root", Name: "root"}
	for _, oid := range cur.Outputs {
		out := r.outputs[oid]
		if out == nil {
			continue
		}
		on := events.TreeNode{
			ID:     uint64(oid),
			Type:   "output",
			Name:   out.name,
			Rect:   rect(out.current.Box),
			Active: oid == cur.ActiveOutput,
		}
		for _, wsID := range cur.Workspaces {
			ws := r.workspaces[wsID]
			if ws == nil || ws.current.Output != oid {
				continue
			}
			wn := r.describeWorkspace(ws)
			wn.Active = out.current.ActiveWorkspace == wsID
			on.Nodes = append(on.Nodes, wn)
		}
		node.Nodes = append(node.Nodes, on)
	}

	var detached []events.TreeNode
	for _, wsID := range cur.Workspaces {
		if ws := r.workspaces[wsID]; ws != nil && ws.current.Output == 0 {
			detached = append(detached, r.describeWorkspace(ws))
		}
	}
	if len(detached) > 0 {
		node.Nodes = append(node.Nodes, events.TreeNode{Type: "output", Name: "__detached", Nodes: detached})
	}
	return node
}

func (r *Root) describeWorkspace(ws *Workspace) events.TreeNode {
	s := ws.current
	n := events.TreeNode{
		ID:      uint64(ws.id),
		Type:    "workspace",
		Name:    s.Name,
		Rect:    rect(s.Box),
		Focused: s.Focused,
		Urgent:  ws.HasUrgent(),
	}
	for _, cID := range s.Tiling {
		c := r.columns[cID]
		if c == nil {
			continue
		}
		cs := c.current
		cn := events.TreeNode{
			ID:      uint64(cID),
			Type:    "column",
			Rect:    rect(cs.Box),
			Focused: cs.Focused,
			Active:  cID == s.ActiveColumn,
			Layout:  cs.Layout.String(),
		}
		if cs.ShowPreview {
			preview := rect(cs.PreviewBox)
			cn.Preview = &preview
		}
		for _, wID := range cs.Children {
			if w := r.windows[wID]; w != nil {
				wn := r.describeWindow(w)
				wn.Active = wID == cs.ActiveChild
				cn.Nodes = append(cn.Nodes, wn)
			}
		}
		n.Nodes = append(n.Nodes, cn)
	}
	for _, wID := range s.Floating {
		if w := r.windows[wID]; w != nil {
			wn := r.describeWindow(w)
			wn.Active = wID == s.ActiveFloating
			n.Floating = append(n.Floating, wn)
		}
	}
	return n
}

func (r *Root) describeWindow(w *Window) events.TreeNode {
	s := w.current
	content := rect(s.Content)
	n := events.TreeNode{
		ID:      uint64(w.id),
		Type:    "window",
		Name:    w.Title(),
		Rect:    rect(s.Box),
		Content: &content,
		Focused: s.Focused,
		Border:  s.Border.String(),
		Urgent:  s.Urgent,
		PID:     w.pid,
		AppID:   w.AppID(),
	}
	if s.Fullscreen != FullscreenNone {
		n.Fullscreen = s.Fullscreen.String()
	}
	return n
}
