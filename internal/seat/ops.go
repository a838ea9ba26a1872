package seat

import (
	"math"

	"tessera/internal/layout"
	"tessera/internal/tree"
)

// defaultOp handles every event: click to focus, modifier drags that start
// the modal ops, and focus follows mouse.
type defaultOp struct{}

func (*defaultOp) Name() string { return "default" }

func (*defaultOp) Button(s *Seat, ev ButtonEvent) {
	if ev.State != Pressed {
		return
	}
	w := s.root.WindowAt(s.cursorX, s.cursorY)
	if w == nil {
		return
	}

	if s.opts.Modifier != 0 && s.modifiers&s.opts.Modifier == s.opts.Modifier && len(s.pressed) == 1 {
		switch {
		case ev.Button == BtnLeft && w.Floating():
			s.BeginMoveFloating(w)
			return
		case ev.Button == BtnRight && w.Floating():
			s.BeginResizeFloating(w, edgeAt(w.Current().Box, s.cursorX, s.cursorY))
			return
		case ev.Button == BtnLeft && s.opts.TilingDrag:
			s.BeginMoveTiling(w)
			s.focus(w)
			return
		case ev.Button == BtnRight:
			s.BeginResizeTiling(w, edgeAt(w.Current().Box, s.cursorX, s.cursorY))
			return
		}
	}
	s.focus(w)
}

func (*defaultOp) PointerMotion(s *Seat, ev MotionEvent) {
	w := s.root.WindowAt(ev.X, ev.Y)
	var id tree.WindowID
	if w != nil {
		id = w.ID()
	}
	if id == s.hovered {
		return
	}
	s.hovered = id
	if s.opts.FocusFollowsMouse && w != nil && len(s.pressed) == 0 {
		s.focus(w)
	}
}

func (*defaultOp) PointerAxis(s *Seat, ev AxisEvent) {
	s.log.Debug("scroll", "orientation", int(ev.Orientation), "delta", ev.Delta)
}

// TabletToolTip focuses what the pen touches. Pen drags never start a
// modal op.
func (*defaultOp) TabletToolTip(s *Seat, ev TabletTipEvent) {
	if !ev.Down {
		return
	}
	if w := s.root.WindowAt(s.cursorX, s.cursorY); w != nil {
		s.focus(w)
	}
}

func (op *defaultOp) TabletToolMotion(s *Seat, ev TabletMotionEvent) {
	op.PointerMotion(s, MotionEvent{TimeMsec: ev.TimeMsec, X: ev.X, Y: ev.Y})
}

func (*defaultOp) Rebase(s *Seat, _ uint32) {
	s.hovered = 0
	if w := s.root.WindowAt(s.cursorX, s.cursorY); w != nil {
		s.hovered = w.ID()
	}
}

func (*defaultOp) Unref(*Seat, *tree.Window) {}

func (*defaultOp) End(*Seat) {}

// focus focuses w in its own transaction, raising it if floating.
func (s *Seat) focus(w *tree.Window) {
	if s.root.FocusedWindow() == w {
		return
	}
	s.transaction(func() {
		if w.Floating() {
			w.RaiseFloating()
		}
		s.root.SetFocusedWindow(w)
	})
}

// edgeAt picks the corner of box nearest (x, y).
func edgeAt(box layout.Box, x, y float64) tree.Edge {
	cx, cy := box.Center()
	edge := tree.EdgeRight
	if x < cx {
		edge = tree.EdgeLeft
	}
	if y < cy {
		return edge | tree.EdgeTop
	}
	return edge | tree.EdgeBottom
}

// allReleased ends a modal op once the last button is up.
func allReleased(s *Seat, ev ButtonEvent) bool {
	return ev.State == Released && len(s.pressed) == 0
}

type moveFloatingOp struct {
	window *tree.Window
	dx, dy float64
}

func (*moveFloatingOp) Name() string { return "move-floating" }

func (op *moveFloatingOp) PointerMotion(s *Seat, ev MotionEvent) {
	s.transaction(func() {
		op.window.FloatingMoveTo(nil, ev.X-op.dx, ev.Y-op.dy)
	})
}

// Button snaps the window onto the output nearest its centre when the drag
// ends.
func (op *moveFloatingOp) Button(s *Seat, ev ButtonEvent) {
	if !allReleased(s, ev) {
		return
	}
	w := op.window
	s.transaction(func() {
		box := w.Pending().Box
		cx, cy := box.Center()
		if out := s.root.ClosestOutput(cx, cy); out != nil {
			w.FloatingMoveTo(out, box.X, box.Y)
		}
	})
	s.BeginDefault()
}

func (op *moveFloatingOp) Unref(s *Seat, w *tree.Window) {
	if w == op.window {
		s.BeginDefault()
	}
}

func (op *moveFloatingOp) End(*Seat) {
	op.window = nil
}

type resizeFloatingOp struct {
	window     *tree.Window
	edge       tree.Edge
	refX, refY float64
	refBox     layout.Box
}

func (*resizeFloatingOp) Name() string { return "resize-floating" }

func (op *resizeFloatingOp) PointerMotion(s *Seat, ev MotionEvent) {
	dx, dy := ev.X-op.refX, ev.Y-op.refY
	box := op.refBox
	switch {
	case op.edge&tree.EdgeLeft != 0:
		box.Width -= dx
	case op.edge&tree.EdgeRight != 0:
		box.Width += dx
	}
	switch {
	case op.edge&tree.EdgeTop != 0:
		box.Height -= dy
	case op.edge&tree.EdgeBottom != 0:
		box.Height += dy
	}
	box.Width = math.Max(box.Width, 1)
	box.Height = math.Max(box.Height, 1)

	w := op.window
	s.transaction(func() {
		w.FloatingResize(box)
		got := w.Pending().Box
		x, y := op.refBox.X, op.refBox.Y
		if op.edge&tree.EdgeLeft != 0 {
			x = op.refBox.X + op.refBox.Width - got.Width
		}
		if op.edge&tree.EdgeTop != 0 {
			y = op.refBox.Y + op.refBox.Height - got.Height
		}
		w.FloatingMoveTo(nil, x, y)
	})
}

func (op *resizeFloatingOp) Button(s *Seat, ev ButtonEvent) {
	if !allReleased(s, ev) {
		return
	}
	w := op.window
	s.transaction(func() { w.SetResizing(false) })
	s.BeginDefault()
}

func (op *resizeFloatingOp) Unref(s *Seat, w *tree.Window) {
	if w == op.window {
		op.window = nil
		s.BeginDefault()
	}
}

func (op *resizeFloatingOp) End(*Seat) {
	if op.window != nil {
		op.window.SetResizing(false)
		op.window = nil
	}
}

type moveTilingOp struct {
	window         *tree.Window
	startX, startY float64
	threshold      float64
	active         bool

	// Drop target: the column, and the window the dragged one lands after
	// (nil for the top).
	target *tree.Column
	after  *tree.Window
}

func (*moveTilingOp) Name() string { return "move-tiling" }

func (op *moveTilingOp) PointerMotion(s *Seat, ev MotionEvent) {
	if !op.active {
		dx, dy := ev.X-op.startX, ev.Y-op.startY
		if dx*dx+dy*dy < op.threshold*op.threshold {
			return
		}
		op.active = true
	}

	col, after, ok := op.dropTarget(s, ev.X, ev.Y)
	if col == op.target && after == op.after {
		return
	}
	s.transaction(func() {
		if op.target != nil && op.target != col {
			op.target.SetPreview(false, nil)
		}
		op.target, op.after = nil, nil
		if ok {
			op.target, op.after = col, after
			col.SetPreview(true, after)
		}
	})
}

// dropTarget finds where the dragged window would land if released at
// (x, y): above or below the tiled window under the cursor.
func (op *moveTilingOp) dropTarget(s *Seat, x, y float64) (*tree.Column, *tree.Window, bool) {
	under := s.root.WindowAt(x, y)
	if under == nil || under.Floating() || under.Column() == nil {
		return nil, nil, false
	}
	col := under.Column()
	if under == op.window {
		return nil, nil, false
	}
	_, cy := under.Current().Box.Center()
	if y >= cy {
		return col, under, true
	}
	i := col.IndexOf(under)
	var after *tree.Window
	if i > 0 {
		after = col.Children()[i-1]
	}
	if after == op.window {
		// Dropping directly below itself is no move at all.
		return nil, nil, false
	}
	return col, after, true
}

func (op *moveTilingOp) Button(s *Seat, ev ButtonEvent) {
	if !allReleased(s, ev) {
		return
	}
	w, col, after := op.window, op.target, op.after
	if op.active && col != nil {
		s.transaction(func() {
			col.SetPreview(false, nil)
			s.root.MoveWindowToColumn(w, col, after)
			s.root.SetFocusedWindow(w)
		})
		op.target = nil
	}
	s.BeginDefault()
}

func (op *moveTilingOp) Unref(s *Seat, w *tree.Window) {
	switch w {
	case op.window:
		s.BeginDefault()
	case op.after:
		op.after = nil
		if op.target != nil {
			op.target.SetPreview(true, nil)
		}
	}
}

func (op *moveTilingOp) UnrefColumn(_ *Seat, c *tree.Column) {
	if c == op.target {
		op.target, op.after = nil, nil
	}
}

func (op *moveTilingOp) End(*Seat) {
	if op.target != nil {
		op.target.SetPreview(false, nil)
	}
	op.window, op.target, op.after = nil, nil, nil
}

type resizeTilingOp struct {
	window       *tree.Window
	column       *tree.Column
	edge         tree.Edge
	lastX, lastY float64

	// resizing holds the windows flagged at begin. They are cleared by
	// identity, so windows that leave the column mid-drag are not missed.
	resizing []*tree.Window
}

func (*resizeTilingOp) Name() string { return "resize-tiling" }

func (op *resizeTilingOp) PointerMotion(s *Seat, ev MotionEvent) {
	dx, dy := ev.X-op.lastX, ev.Y-op.lastY
	op.lastX, op.lastY = ev.X, ev.Y
	w := op.window
	if w.Column() != op.column {
		return
	}
	s.transaction(func() {
		if dx != 0 {
			if op.edge&tree.EdgeLeft != 0 {
				w.ResizeTiled(tree.EdgeLeft, -dx)
			} else if op.edge&tree.EdgeRight != 0 {
				w.ResizeTiled(tree.EdgeRight, dx)
			}
		}
		if dy != 0 {
			if op.edge&tree.EdgeTop != 0 {
				w.ResizeTiled(tree.EdgeTop, -dy)
			} else if op.edge&tree.EdgeBottom != 0 {
				w.ResizeTiled(tree.EdgeBottom, dy)
			}
		}
	})
}

func (op *resizeTilingOp) Button(s *Seat, ev ButtonEvent) {
	if !allReleased(s, ev) {
		return
	}
	flagged := op.resizing
	op.resizing = nil
	s.transaction(func() { clearResizing(flagged) })
	s.BeginDefault()
}

func (op *resizeTilingOp) Unref(s *Seat, w *tree.Window) {
	if w == op.window {
		op.window = nil
		s.BeginDefault()
	}
}

func (op *resizeTilingOp) UnrefColumn(s *Seat, c *tree.Column) {
	if c == op.column {
		op.column = nil
		s.BeginDefault()
	}
}

func (op *resizeTilingOp) End(*Seat) {
	clearResizing(op.resizing)
	op.window, op.column, op.resizing = nil, nil, nil
}

func clearResizing(windows []*tree.Window) {
	for _, w := range windows {
		w.SetResizing(false)
	}
}
