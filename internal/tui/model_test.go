package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"tessera/internal/events"
	"tessera/internal/server"
)

// fakeSource is an in-memory compositor connection.
type fakeSource struct {
	tree       events.TreeNode
	stats      server.Stats
	results    []events.CommandResult
	err        error
	stream     chan events.Event
	commands   []string
	subscribed int
}

func (f *fakeSource) Tree(ctx context.Context) (events.TreeNode, error) {
	return f.tree, f.err
}

func (f *fakeSource) Stats(ctx context.Context) (server.Stats, error) {
	return f.stats, f.err
}

func (f *fakeSource) Command(ctx context.Context, line string) ([]events.CommandResult, error) {
	f.commands = append(f.commands, line)
	return f.results, f.err
}

func (f *fakeSource) Subscribe(ctx context.Context, types []string) (<-chan events.Event, error) {
	f.subscribed++
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

// sampleTree is one output showing workspace 1 with a two-window column.
func sampleTree() events.TreeNode {
	return events.TreeNode{
		ID:   1,
		Type: "root",
		Nodes: []events.TreeNode{{
			ID:   2,
			Type: "output",
			Name: "HEADLESS-1",
			Rect: events.Rect{Width: 1920, Height: 1080},
			Nodes: []events.TreeNode{{
				ID:     3,
				Type:   "workspace",
				Name:   "1",
				Active: true,
				Rect:   events.Rect{Width: 1920, Height: 1080},
				Nodes: []events.TreeNode{{
					ID:     4,
					Type:   "column",
					Layout: "splitv",
					Rect:   events.Rect{Width: 1920, Height: 1080},
					Nodes: []events.TreeNode{
						{ID: 5, Type: "window", AppID: "foot", Name: "shell", Focused: true, Active: true, Rect: events.Rect{Width: 1920, Height: 540}},
						{ID: 6, Type: "window", AppID: "firefox", Name: "web", Rect: events.Rect{Y: 540, Width: 1920, Height: 540}},
					},
				}},
			}},
		}},
	}
}

func newTestModel(t *testing.T) (Model, *fakeSource) {
	t.Helper()
	src := &fakeSource{tree: sampleTree(), stream: make(chan events.Event, 8)}
	m := NewModel(src, "mocha")
	t.Cleanup(m.cancel)
	return m, src
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t)

	if !m.eventsOpen {
		t.Error("eventsOpen = false, want true")
	}
	if m.detailOpen {
		t.Error("detailOpen = true, want false")
	}
	if m.panelFocus != FocusTree {
		t.Errorf("panelFocus = %v, want FocusTree", m.panelFocus)
	}
	if m.statusLevel != StatusLoading {
		t.Errorf("statusLevel = %v, want StatusLoading", m.statusLevel)
	}
	if !m.fetching {
		t.Error("fetching = false, want true until the first tree arrives")
	}
	if m.Init() == nil {
		t.Error("Init() = nil, want a command")
	}
}

func TestModel_Subscribe(t *testing.T) {
	m, src := newTestModel(t)

	msg := m.subscribe()()
	sub, ok := msg.(subscribedMsg)
	if !ok {
		t.Fatalf("subscribe() = %T, want subscribedMsg", msg)
	}
	if sub.stream == nil {
		t.Error("subscribedMsg.stream = nil")
	}
	if src.subscribed != 1 {
		t.Errorf("Subscribe calls = %d, want 1", src.subscribed)
	}

	src.err = errors.New("connection refused")
	msg = m.subscribe()()
	se, ok := msg.(events.StreamErrorMsg)
	if !ok {
		t.Fatalf("subscribe() = %T, want StreamErrorMsg", msg)
	}
	if se.Err == nil {
		t.Error("StreamErrorMsg.Err = nil, want the subscribe error")
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan events.Event, 1)
	ev := events.Event{Type: events.TypeWindow, Change: events.ChangeNew, ID: 7, Time: time.Now()}
	ch <- ev

	msg := waitForEvent(ch)()
	got, ok := msg.(events.EventMsg)
	if !ok {
		t.Fatalf("waitForEvent() = %T, want EventMsg", msg)
	}
	if got.Event.ID != 7 {
		t.Errorf("Event.ID = %d, want 7", got.Event.ID)
	}

	close(ch)
	msg = waitForEvent(ch)()
	se, ok := msg.(events.StreamErrorMsg)
	if !ok {
		t.Fatalf("waitForEvent() on closed stream = %T, want StreamErrorMsg", msg)
	}
	if se.Err != nil {
		t.Errorf("StreamErrorMsg.Err = %v, want nil", se.Err)
	}
}

func TestModel_Fetch(t *testing.T) {
	m, src := newTestModel(t)
	src.stats = server.Stats{Windows: 2}

	if msg, ok := m.fetchTree()().(events.TreeUpdateMsg); !ok {
		t.Errorf("fetchTree() = %T, want TreeUpdateMsg", msg)
	} else if msg.Tree.ID != 1 {
		t.Errorf("Tree.ID = %d, want 1", msg.Tree.ID)
	}
	if msg, ok := m.fetchStats()().(statsMsg); !ok {
		t.Errorf("fetchStats() = %T, want statsMsg", msg)
	} else if msg.stats.Windows != 2 {
		t.Errorf("stats.Windows = %d, want 2", msg.stats.Windows)
	}

	src.err = errors.New("boom")
	if msg, ok := m.fetchTree()().(fetchErrorMsg); !ok {
		t.Errorf("fetchTree() with error = %T, want fetchErrorMsg", msg)
	}
}

func TestModel_SelectedNode(t *testing.T) {
	m, _ := newTestModel(t)

	if _, ok := m.SelectedNode(); ok {
		t.Error("SelectedNode() ok = true on an empty list")
	}

	m.setTree(sampleTree())
	n, ok := m.SelectedNode()
	if !ok {
		t.Fatal("SelectedNode() ok = false after setTree")
	}
	if n.Type != "output" || n.Name != "HEADLESS-1" {
		t.Errorf("SelectedNode() = %s %s, want output HEADLESS-1", n.Type, n.Name)
	}
}
