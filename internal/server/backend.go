// pattern: Imperative Shell

package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tessera/internal/headless"
	"tessera/internal/layout"
	"tessera/internal/logging"
	"tessera/internal/seat"
	"tessera/internal/tree"
)

type nopProvider struct{}

func (nopProvider) For(string) *logging.ScopedLogger { return logging.NopLogger() }

// AddOutput plugs in a new output.
func (s *Server) AddOutput(ctx context.Context, name string, box layout.Box) error {
	return s.do(ctx, func() error {
		if s.root.OutputByName(name) != nil {
			return fmt.Errorf("output %q: %w", name, ErrOutputExists)
		}
		s.txn.Run(func() { s.root.AddOutput(name, box) })
		s.log.Info("output added", "output", name, "width", box.Width, "height", box.Height)
		return nil
	})
}

// RemoveOutput unplugs an output. Its workspaces move to the remaining
// outputs.
func (s *Server) RemoveOutput(ctx context.Context, name string) error {
	return s.do(ctx, func() error {
		out := s.root.OutputByName(name)
		if out == nil {
			return fmt.Errorf("output %q: %w", name, tree.ErrNotFound)
		}
		s.txn.Run(func() { s.root.RemoveOutput(out) })
		s.log.Info("output removed", "output", name)
		return nil
	})
}

// ResizeOutput changes an output's mode or position.
func (s *Server) ResizeOutput(ctx context.Context, name string, box layout.Box) error {
	return s.do(ctx, func() error {
		out := s.root.OutputByName(name)
		if out == nil {
			return fmt.Errorf("output %q: %w", name, tree.ErrNotFound)
		}
		s.txn.Run(func() { s.root.SetOutputBox(out, box) })
		return nil
	})
}

// ClientSpec describes a simulated client window to open.
type ClientSpec struct {
	PID        int     `json:"pid"`
	AppID      string  `json:"app_id"`
	Title      string  `json:"title"`
	Workspace  string  `json:"workspace,omitempty"`
	Floating   bool    `json:"floating,omitempty"`
	Fullscreen bool    `json:"fullscreen,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	AckDelayMS int     `json:"ack_delay_ms,omitempty"`
	Frozen     bool    `json:"frozen,omitempty"`
}

// OpenClient maps a simulated client and returns its window id.
func (s *Server) OpenClient(ctx context.Context, spec ClientSpec) (tree.WindowID, error) {
	var id tree.WindowID
	err := s.do(ctx, func() error {
		if s.root.ActiveWorkspace() == nil && spec.Workspace == "" {
			return fmt.Errorf("no workspace to open %q on: %w", spec.AppID, tree.ErrNotFound)
		}
		c := headless.NewClient(headless.ClientOptions{
			PID:      spec.PID,
			AppID:    spec.AppID,
			Title:    spec.Title,
			AckDelay: time.Duration(spec.AckDelayMS) * time.Millisecond,
			Frozen:   spec.Frozen,
		}, s.ack, s.clientClosed)
		s.txn.Run(func() {
			w := s.root.MapWindow(c, tree.MapOptions{
				Workspace:  spec.Workspace,
				Floating:   spec.Floating,
				Fullscreen: spec.Fullscreen,
				Width:      spec.Width,
				Height:     spec.Height,
			})
			c.Bind(w.ID())
			s.clients[w.ID()] = c
			id = w.ID()
		})
		return nil
	})
	return id, err
}

// CloseClient unmaps a client's window as if the client had gone away.
func (s *Server) CloseClient(ctx context.Context, id tree.WindowID) error {
	return s.do(ctx, func() error {
		w := s.root.Window(id)
		if w == nil || w.Dead() {
			return fmt.Errorf("window %d: %w", id, tree.ErrNotFound)
		}
		s.txn.Run(func() { s.root.UnmapWindow(w) })
		return nil
	})
}

// FreezeClient stops or resumes a client's acknowledgements.
func (s *Server) FreezeClient(ctx context.Context, id tree.WindowID, frozen bool) error {
	return s.do(ctx, func() error {
		c, ok := s.clients[id]
		if !ok {
			return fmt.Errorf("client %d: %w", id, tree.ErrNotFound)
		}
		c.SetFrozen(frozen)
		return nil
	})
}

// ack hands a client acknowledgement to the loop.
func (s *Server) ack(window tree.WindowID, serial uint32) {
	s.loop.Post(func() { s.txn.Ack(window, serial) })
}

// clientClosed runs when a client agrees to close.
func (s *Server) clientClosed(c *headless.Client) {
	s.loop.Post(func() {
		w := s.root.Window(c.Window())
		if w == nil || w.Dead() {
			return
		}
		s.txn.Run(func() { s.root.UnmapWindow(w) })
	})
}

// SetLayerFocus gives keyboard focus to the named layer surface, creating
// it on first use. An empty name releases layer focus.
func (s *Server) SetLayerFocus(ctx context.Context, name string) error {
	return s.do(ctx, func() error {
		s.txn.Run(func() {
			if name == "" {
				s.root.SetFocusedLayer(nil)
				return
			}
			l, ok := s.layers[name]
			if !ok {
				l = &headless.Layer{Name: name}
				s.layers[name] = l
			}
			s.root.SetFocusedLayer(l)
		})
		return nil
	})
}

// Input is one synthetic input event.
type Input struct {
	Type      string  `json:"type"` // motion, button, axis, key, tablet_tip, tablet_motion
	TimeMsec  uint32  `json:"time_msec"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Button    uint32  `json:"button,omitempty"`
	Pressed   bool    `json:"pressed,omitempty"`
	Delta     float64 `json:"delta,omitempty"`
	Axis      string  `json:"axis,omitempty"` // vertical or horizontal
	Keycode   uint32  `json:"keycode,omitempty"`
	Modifiers uint32  `json:"modifiers,omitempty"`
}

// ErrUnknownInput is returned for an Input with an unrecognised type.
var ErrUnknownInput = errors.New("unknown input type")

// Input feeds ev to the seat.
func (s *Server) Input(ctx context.Context, ev Input) error {
	return s.do(ctx, func() error {
		switch ev.Type {
		case "motion":
			s.seat.PointerMotion(seat.MotionEvent{TimeMsec: ev.TimeMsec, X: ev.X, Y: ev.Y})
		case "button":
			state := seat.Released
			if ev.Pressed {
				state = seat.Pressed
			}
			s.seat.PointerButton(seat.ButtonEvent{TimeMsec: ev.TimeMsec, Button: ev.Button, State: state})
		case "axis":
			orientation := seat.AxisVertical
			if ev.Axis == "horizontal" {
				orientation = seat.AxisHorizontal
			}
			s.seat.PointerAxis(seat.AxisEvent{TimeMsec: ev.TimeMsec, Orientation: orientation, Delta: ev.Delta})
		case "tablet_tip":
			s.seat.TabletToolTip(seat.TabletTipEvent{TimeMsec: ev.TimeMsec, Down: ev.Pressed})
		case "tablet_motion":
			s.seat.TabletToolMotion(seat.TabletMotionEvent{TimeMsec: ev.TimeMsec, X: ev.X, Y: ev.Y})
		case "key":
			s.seat.SetModifiers(ev.Modifiers)
			s.seat.Key(seat.KeyEvent{TimeMsec: ev.TimeMsec, Keycode: ev.Keycode, Pressed: ev.Pressed, Modifiers: ev.Modifiers})
		default:
			return fmt.Errorf("%w %q", ErrUnknownInput, ev.Type)
		}
		return nil
	})
}

// Keyboard returns the headless keyboard that records focus handoffs.
func (s *Server) Keyboard() *headless.Keyboard { return s.keyboard }

// Tick applies transactions whose deadline has passed. The loop does this
// on its own timer; Tick lets callers with an injected clock drive it.
func (s *Server) Tick(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.txn.Tick()
		return nil
	})
}
