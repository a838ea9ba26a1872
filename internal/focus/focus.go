// pattern: Imperative Shell

// Package focus decides which surface holds keyboard focus and hands it
// over when a transaction makes the change visible.
package focus

import (
	"fmt"

	"tessera/internal/logging"
	"tessera/internal/seat"
	"tessera/internal/tree"
)

// Kind says what sort of surface a Target is.
type Kind int

const (
	KindNone Kind = iota
	KindWindow
	KindLayer
	KindSurface
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindWindow:
		return "window"
	case KindLayer:
		return "layer"
	case KindSurface:
		return "surface"
	}
	return "unknown"
}

// Target is the holder of keyboard focus.
type Target struct {
	Kind    Kind
	Window  tree.WindowID
	Overlay tree.Overlay
}

func (t Target) String() string {
	switch t.Kind {
	case KindWindow:
		return fmt.Sprintf("window %d", t.Window)
	case KindLayer, KindSurface:
		return fmt.Sprintf("%s %s", t.Kind, t.Overlay.OverlayName())
	}
	return "none"
}

// Resolve applies focus precedence to a root state: a pinned surface, then
// an exclusive overlay layer, then the focused window.
func Resolve(s tree.RootState) Target {
	switch {
	case s.FocusedSurface != nil:
		return Target{Kind: KindSurface, Overlay: s.FocusedSurface}
	case s.FocusedLayer != nil:
		return Target{Kind: KindLayer, Overlay: s.FocusedLayer}
	case s.FocusedWindow != 0:
		return Target{Kind: KindWindow, Window: s.FocusedWindow}
	}
	return Target{}
}

// KeyboardSink delivers keyboard focus and key events to clients.
type KeyboardSink interface {
	Enter(t Target)
	Leave(t Target)
	Key(t Target, ev seat.KeyEvent)
}

// Coordinator tracks the keyboard focus the user can see.
type Coordinator struct {
	log      *logging.ScopedLogger
	sink     KeyboardSink
	current  Target
	onChange []func(from, to Target)
}

// New creates a coordinator. sink may be nil.
func New(log *logging.ScopedLogger, sink KeyboardSink) *Coordinator {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Coordinator{log: log, sink: sink}
}

// OnChange registers fn to run after every focus handoff.
func (c *Coordinator) OnChange(fn func(from, to Target)) {
	c.onChange = append(c.onChange, fn)
}

// Current returns the target holding keyboard focus.
func (c *Coordinator) Current() Target { return c.current }

// Commit hands keyboard focus to whatever s says should have it. It runs
// just before a transaction's changes become visible.
func (c *Coordinator) Commit(s tree.RootState) {
	next := Resolve(s)
	if next == c.current {
		return
	}
	old := c.current
	if c.sink != nil {
		if old.Kind != KindNone {
			c.sink.Leave(old)
		}
		if next.Kind != KindNone {
			c.sink.Enter(next)
		}
	}
	c.current = next
	c.log.Debug("keyboard focus changed", "from", old.String(), "to", next.String())
	for _, fn := range c.onChange {
		fn(old, next)
	}
}

// Key forwards a key event to the focused target. Keys with nothing
// focused are dropped.
func (c *Coordinator) Key(ev seat.KeyEvent) {
	if c.current.Kind == KindNone || c.sink == nil {
		return
	}
	c.sink.Key(c.current, ev)
}
