package seat

import "tessera/internal/tree"

// Op is the active input mode of a seat. Beyond Name, an op implements
// only the handlers it cares about; the seat treats missing ones as
// no-ops.
type Op interface {
	Name() string
}

// ButtonHandler receives pointer button events.
type ButtonHandler interface {
	Button(s *Seat, ev ButtonEvent)
}

// PointerMotionHandler receives cursor motion. The seat's cursor is
// already at the new position.
type PointerMotionHandler interface {
	PointerMotion(s *Seat, ev MotionEvent)
}

// PointerAxisHandler receives scroll events.
type PointerAxisHandler interface {
	PointerAxis(s *Seat, ev AxisEvent)
}

// TabletToolTipHandler receives tablet tip contact changes.
type TabletToolTipHandler interface {
	TabletToolTip(s *Seat, ev TabletTipEvent)
}

// TabletToolMotionHandler receives tablet tool motion. Ops without one get
// tablet motion as pointer motion.
type TabletToolMotionHandler interface {
	TabletToolMotion(s *Seat, ev TabletMotionEvent)
}

// RebaseHandler is called when the scene under a stationary cursor may
// have changed.
type RebaseHandler interface {
	Rebase(s *Seat, timeMsec uint32)
}

// UnrefHandler is told, before it is freed, about every window that is
// being destroyed. An op referencing w must stop doing so.
type UnrefHandler interface {
	Unref(s *Seat, w *tree.Window)
}

// ColumnUnrefHandler is told about every column being destroyed, before
// it is freed.
type ColumnUnrefHandler interface {
	UnrefColumn(s *Seat, c *tree.Column)
}

// EndHandler releases the op's resources when another op replaces it. It
// must not run a transaction.
type EndHandler interface {
	End(s *Seat)
}
