// pattern: Functional Core

package tree

import "tessera/internal/layout"

// Arrange recomputes pending geometry for every workspace queued by a
// mutation since the last pass.
func (r *Root) Arrange() {
	for len(r.arrangeQueue) > 0 {
		queue := r.arrangeQueue
		r.arrangeQueue = nil
		for _, id := range queue {
			ws := r.workspaces[id]
			if ws == nil {
				continue
			}
			ws.needsArrange = false
			if !ws.pending.Dead {
				ws.Arrange()
			}
		}
	}
	r.arrangeGlobalFullscreen()
}

// ArrangeAll recomputes pending geometry for every workspace.
func (r *Root) ArrangeAll() {
	for _, id := range r.pending.Workspaces {
		if ws := r.workspaces[id]; ws != nil {
			ws.needsArrange = false
			ws.Arrange()
		}
	}
	r.arrangeQueue = nil
	r.arrangeGlobalFullscreen()
}

func (r *Root) arrangeGlobalFullscreen() {
	if g := r.windows[r.pending.FullscreenGlobal]; g != nil {
		box := r.Box()
		g.setBox(box)
		g.setContent(box)
	}
}

// Arrange lays out the workspace: columns split its width by width
// fraction inside the outer gap, each column splits its height, floating
// windows keep their position and a fullscreen window covers the output.
func (ws *Workspace) Arrange() {
	if out := ws.Output(); out != nil && ws.pending.Box != out.pending.Box {
		ws.pending.Box = out.pending.Box
		ws.root.markDirty(ws.id.Ref())
	}

	area := layout.Shrink(ws.pending.Box, ws.gapsOuter)
	columns := ws.Columns()
	fractions := make([]float64, len(columns))
	for i, c := range columns {
		fractions[i] = c.widthFraction
	}
	norm := layout.Normalize(fractions)
	boxes := layout.Split(area, layout.Horizontal, fractions, ws.gapsInner)
	for i, c := range columns {
		c.widthFraction = norm[i]
		c.setBox(boxes[i])
		c.Arrange()
	}

	for _, w := range ws.FloatingWindows() {
		if w.pending.Fullscreen == FullscreenNone {
			w.setContent(w.contentFor(w.pending.Box))
		}
	}

	if fs := ws.root.windows[ws.pending.Fullscreen]; fs != nil {
		fs.setBox(ws.pending.Box)
		fs.setContent(ws.pending.Box)
	}
}

// Arrange lays out the column's children and drop preview.
func (c *Column) Arrange() {
	ws := c.Workspace()
	gap := 0.0
	if ws != nil {
		gap = ws.gapsInner
	}

	children := c.Children()
	var preview *layout.Preview
	if c.pending.ShowPreview {
		index := 0
		if t := c.root.windows[c.pending.PreviewTarget]; t != nil {
			index = c.IndexOf(t) + 1
		}
		preview = &layout.Preview{Index: index, Fraction: c.root.opts.PreviewFraction}
	}

	var boxes []layout.Box
	var previewBox layout.Box
	fractions := make([]float64, len(children))
	for i, w := range children {
		fractions[i] = w.heightFraction
	}
	norm := layout.Normalize(fractions)

	if c.pending.Layout == LayoutStacked {
		if preview != nil {
			preview.Index = min(preview.Index, 1)
		}
		one, pb := layout.SplitWithPreview(c.pending.Box, layout.Vertical, []float64{1}, gap, preview)
		previewBox = pb
		boxes = make([]layout.Box, len(children))
		for i := range boxes {
			boxes[i] = one[0]
		}
	} else {
		boxes, previewBox = layout.SplitWithPreview(c.pending.Box, layout.Vertical, fractions, gap, preview)
	}

	for i, w := range children {
		w.heightFraction = norm[i]
		if w.pending.Fullscreen != FullscreenNone {
			continue
		}
		w.setBox(boxes[i])
		w.setContent(w.contentFor(boxes[i]))
	}

	if c.pending.PreviewBox != previewBox {
		c.pending.PreviewBox = previewBox
		c.root.markDirty(c.id.Ref())
	}
}

func (c *Column) setBox(box layout.Box) {
	if c.pending.Box == box {
		return
	}
	c.pending.Box = box
	c.root.markDirty(c.id.Ref())
}
