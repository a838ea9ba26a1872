// pattern: Imperative Shell

package headless

import (
	"sync"

	"tessera/internal/config"
	"tessera/internal/events"
	"tessera/internal/transaction"
)

// DefaultHistory is how many frames a Scene keeps.
const DefaultHistory = 64

// Decoration classes.
const (
	ClassFocused   = "focused"
	ClassUnfocused = "unfocused"
	ClassUrgent    = "urgent"
	ClassPreview   = "preview"
)

// Decoration is one border or drop preview as it would be drawn.
type Decoration struct {
	Node   uint64      `json:"node"`
	Title  string      `json:"title,omitempty"`
	Rect   events.Rect `json:"rect"`
	Border string      `json:"border,omitempty"`
	Class  string      `json:"class"`
	Color  string      `json:"color"`
}

// Scene records applied frames. It implements transaction.Scene.
type Scene struct {
	mu       sync.Mutex
	colors   config.Colors
	limit    int
	frames   []transaction.Frame
	total    uint64
	timedOut uint64
}

// NewScene creates a scene drawing with colors and keeping history frames.
func NewScene(colors config.Colors, history int) *Scene {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Scene{colors: colors, limit: history}
}

// Push records f.
func (s *Scene) Push(f transaction.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	if len(s.frames) > s.limit {
		s.frames = append(s.frames[:0], s.frames[len(s.frames)-s.limit:]...)
	}
	s.total++
	if f.TimedOut {
		s.timedOut++
	}
}

// SetColors changes the palette used by Decorations.
func (s *Scene) SetColors(c config.Colors) {
	s.mu.Lock()
	s.colors = c
	s.mu.Unlock()
}

// Last returns the latest frame.
func (s *Scene) Last() (transaction.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return transaction.Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Frames returns the retained frames, oldest first.
func (s *Scene) Frames() []transaction.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transaction.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Counts returns how many frames were pushed and how many of them were
// forced by a deadline.
func (s *Scene) Counts() (total, timedOut uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.timedOut
}

// Decorations returns the borders and drop previews of the latest frame.
// Borderless windows draw nothing.
func (s *Scene) Decorations() []Decoration {
	f, ok := s.Last()
	if !ok {
		return nil
	}
	s.mu.Lock()
	colors := s.colors
	s.mu.Unlock()
	return decorate(f.Tree, colors)
}

func decorate(root events.TreeNode, colors config.Colors) []Decoration {
	var out []Decoration
	root.Walk(func(n events.TreeNode, _ int) {
		switch n.Type {
		case "column":
			if n.Preview != nil {
				out = append(out, Decoration{Node: n.ID, Rect: *n.Preview, Class: ClassPreview, Color: colors.Preview})
			}
		case "window":
			if n.Border == "" || n.Border == "none" {
				return
			}
			class, color := ClassUnfocused, colors.Unfocused
			switch {
			case n.Urgent:
				class, color = ClassUrgent, colors.Urgent
			case n.Focused:
				class, color = ClassFocused, colors.Focused
			}
			out = append(out, Decoration{
				Node:   n.ID,
				Title:  n.Name,
				Rect:   n.Rect,
				Border: n.Border,
				Class:  class,
				Color:  color,
			})
		}
	})
	return out
}
