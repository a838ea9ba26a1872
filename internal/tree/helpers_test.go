package tree

import (
	"testing"

	"tessera/internal/layout"
	"tessera/internal/logging"
)

type fakeSurface struct {
	pid        int
	title      string
	serial     uint32
	configures []ConfigureRequest
	closed     bool
}

func (s *fakeSurface) Configure(req ConfigureRequest) uint32 {
	s.serial++
	s.configures = append(s.configures, req)
	return s.serial
}

func (s *fakeSurface) Close()        { s.closed = true }
func (s *fakeSurface) PID() int      { return s.pid }
func (s *fakeSurface) AppID() string { return "test" }
func (s *fakeSurface) Title() string { return s.title }

var screen = layout.Box{Width: 1920, Height: 1080}

// newTestRoot returns a tree with one 1920x1080 output showing workspace "1".
func newTestRoot(t *testing.T) (*Root, *Publisher) {
	t.Helper()
	r, p := New(logging.NopLogger(), DefaultOptions())
	r.AddOutput("HEADLESS-1", screen)
	return r, p
}

func mustValidate(t *testing.T, r *Root) {
	t.Helper()
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
}

// publish snapshots and promotes everything dirty, as one transaction would.
func publish(p *Publisher) {
	var snaps []Snapshot
	for _, ref := range p.TakeDirty() {
		if s, ok := p.Snapshot(ref); ok {
			snaps = append(snaps, s)
		}
	}
	for _, s := range snaps {
		p.Promote(s)
	}
	for _, s := range snaps {
		p.Release(s.Ref())
	}
}
