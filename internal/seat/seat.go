// pattern: Imperative Shell

// Package seat dispatches input events to the seat's active operation and
// implements the interactive move and resize modes.
package seat

import (
	"tessera/internal/logging"
	"tessera/internal/tree"
)

// DefaultDragThreshold is how far, in pixels, the pointer must travel
// before a tiling drag starts.
const DefaultDragThreshold = 9

// Transactor scopes tree mutations into transactions.
type Transactor interface {
	Begin()
	End()
}

// KeySink receives keyboard events for the focused client.
type KeySink interface {
	Key(ev KeyEvent)
}

// Options tune the default op.
type Options struct {
	// Modifier held to move or resize windows with the pointer.
	Modifier          uint32
	TilingDrag        bool
	DragThreshold     float64
	FocusFollowsMouse bool
}

// DefaultOptions returns logo-drag with tiling drag enabled.
func DefaultOptions() Options {
	return Options{
		Modifier:      ModLogo,
		TilingDrag:    true,
		DragThreshold: DefaultDragThreshold,
	}
}

// Seat is one set of input devices sharing a cursor and keyboard focus.
type Seat struct {
	name string
	log  *logging.ScopedLogger
	root *tree.Root
	txn  Transactor
	keys KeySink
	opts Options

	op        Op
	cursorX   float64
	cursorY   float64
	pressed   map[uint32]bool
	modifiers uint32
	hovered   tree.WindowID
}

// New creates a seat in the default op. keys may be nil.
func New(name string, log *logging.ScopedLogger, root *tree.Root, txn Transactor, keys KeySink, opts Options) *Seat {
	if log == nil {
		log = logging.NopLogger()
	}
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultDragThreshold
	}
	s := &Seat{
		name:    name,
		log:     log,
		root:    root,
		txn:     txn,
		keys:    keys,
		opts:    opts,
		op:      &defaultOp{},
		pressed: make(map[uint32]bool),
	}
	root.OnDestroy(s.unref)
	return s
}

// Name returns the seat name.
func (s *Seat) Name() string { return s.name }

// Op returns the active op.
func (s *Seat) Op() Op { return s.op }

// Cursor returns the cursor position.
func (s *Seat) Cursor() (float64, float64) { return s.cursorX, s.cursorY }

// SetOptions replaces the seat options.
func (s *Seat) SetOptions(opts Options) {
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultDragThreshold
	}
	s.opts = opts
}

// Modifiers returns the keyboard modifiers currently held.
func (s *Seat) Modifiers() uint32 { return s.modifiers }

// SetModifiers records the held modifiers without a key event.
func (s *Seat) SetModifiers(mods uint32) { s.modifiers = mods }

// PressedButtons returns how many pointer buttons are held.
func (s *Seat) PressedButtons() int { return len(s.pressed) }

// WarpCursor moves the cursor without generating motion.
func (s *Seat) WarpCursor(x, y float64) {
	s.cursorX, s.cursorY = x, y
}

// transaction runs fn inside one transaction.
func (s *Seat) transaction(fn func()) {
	s.txn.Begin()
	defer s.txn.End()
	fn()
}

func (s *Seat) setOp(op Op) {
	if e, ok := s.op.(EndHandler); ok {
		e.End(s)
	}
	prev := s.op.Name()
	s.op = op
	s.log.Debug("seat op changed", "from", prev, "to", op.Name())
}

// PointerButton dispatches a button event.
func (s *Seat) PointerButton(ev ButtonEvent) {
	if ev.State == Pressed {
		s.pressed[ev.Button] = true
	} else {
		delete(s.pressed, ev.Button)
	}
	if h, ok := s.op.(ButtonHandler); ok {
		h.Button(s, ev)
	}
}

// PointerMotion moves the cursor and dispatches the motion.
func (s *Seat) PointerMotion(ev MotionEvent) {
	s.cursorX, s.cursorY = ev.X, ev.Y
	if h, ok := s.op.(PointerMotionHandler); ok {
		h.PointerMotion(s, ev)
	}
}

// PointerAxis dispatches a scroll event.
func (s *Seat) PointerAxis(ev AxisEvent) {
	if h, ok := s.op.(PointerAxisHandler); ok {
		h.PointerAxis(s, ev)
	}
}

// TabletToolTip dispatches a tablet tip event.
func (s *Seat) TabletToolTip(ev TabletTipEvent) {
	if h, ok := s.op.(TabletToolTipHandler); ok {
		h.TabletToolTip(s, ev)
	}
}

// TabletToolMotion moves the cursor and dispatches the motion, as pointer
// motion if the op has no tablet handler.
func (s *Seat) TabletToolMotion(ev TabletMotionEvent) {
	s.cursorX, s.cursorY = ev.X, ev.Y
	switch h := s.op.(type) {
	case TabletToolMotionHandler:
		h.TabletToolMotion(s, ev)
	case PointerMotionHandler:
		h.PointerMotion(s, MotionEvent{TimeMsec: ev.TimeMsec, X: ev.X, Y: ev.Y})
	}
}

// Rebase re-evaluates what is under the cursor.
func (s *Seat) Rebase(timeMsec uint32) {
	if h, ok := s.op.(RebaseHandler); ok {
		h.Rebase(s, timeMsec)
	}
}

// Key records modifiers and forwards the key to the focused client.
func (s *Seat) Key(ev KeyEvent) {
	s.modifiers = ev.Modifiers
	if s.keys != nil {
		s.keys.Key(ev)
	}
}

func (s *Seat) unref(ref tree.NodeRef) {
	if ref.Kind == tree.KindColumn {
		c := s.root.Column(tree.ColumnID(ref.ID))
		if h, ok := s.op.(ColumnUnrefHandler); ok && c != nil {
			h.UnrefColumn(s, c)
		}
		return
	}
	if ref.Kind != tree.KindWindow {
		return
	}
	w := s.root.Window(tree.WindowID(ref.ID))
	if w == nil {
		return
	}
	if s.hovered == w.ID() {
		s.hovered = 0
	}
	if h, ok := s.op.(UnrefHandler); ok {
		h.Unref(s, w)
	}
}

// BeginDefault returns the seat to the default op.
func (s *Seat) BeginDefault() {
	if _, ok := s.op.(*defaultOp); ok {
		return
	}
	s.setOp(&defaultOp{})
}

// BeginMoveFloating starts dragging floating window w, keeping the
// cursor's offset into the window. The window is raised and focused.
func (s *Seat) BeginMoveFloating(w *tree.Window) {
	if w == nil || w.Dead() || !w.Floating() {
		return
	}
	box := w.Pending().Box
	s.setOp(&moveFloatingOp{
		window: w,
		dx:     s.cursorX - box.X,
		dy:     s.cursorY - box.Y,
	})
	s.transaction(func() {
		w.RaiseFloating()
		s.root.SetFocusedWindow(w)
	})
}

// BeginResizeFloating starts resizing floating window w from edge.
func (s *Seat) BeginResizeFloating(w *tree.Window, edge tree.Edge) {
	if w == nil || w.Dead() || !w.Floating() {
		return
	}
	s.setOp(&resizeFloatingOp{
		window: w,
		edge:   edge,
		refX:   s.cursorX,
		refY:   s.cursorY,
		refBox: w.Pending().Box,
	})
	s.transaction(func() {
		w.RaiseFloating()
		w.SetResizing(true)
		s.root.SetFocusedWindow(w)
	})
}

// BeginMoveTiling starts dragging tiled window w. Nothing moves until the
// pointer passes the drag threshold.
func (s *Seat) BeginMoveTiling(w *tree.Window) {
	if w == nil || w.Dead() || w.Column() == nil {
		return
	}
	s.setOp(&moveTilingOp{
		window:    w,
		startX:    s.cursorX,
		startY:    s.cursorY,
		threshold: s.opts.DragThreshold,
	})
}

// BeginResizeTiling starts resizing tiled window w from edge.
func (s *Seat) BeginResizeTiling(w *tree.Window, edge tree.Edge) {
	if w == nil || w.Dead() || w.Column() == nil {
		return
	}
	col := w.Column()
	flagged := col.Children()
	s.setOp(&resizeTilingOp{
		window:   w,
		column:   col,
		edge:     edge,
		lastX:    s.cursorX,
		lastY:    s.cursorY,
		resizing: flagged,
	})
	s.transaction(func() {
		for _, c := range flagged {
			c.SetResizing(true)
		}
		s.root.SetFocusedWindow(w)
	})
}
