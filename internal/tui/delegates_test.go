package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/list"

	"tessera/internal/events"
)

func TestNodeItem_Title(t *testing.T) {
	tests := []struct {
		node events.TreeNode
		want string
	}{
		{events.TreeNode{Type: "output", Name: "HEADLESS-1"}, "output HEADLESS-1"},
		{events.TreeNode{Type: "workspace", Name: "web"}, "workspace web"},
		{events.TreeNode{Type: "column", ID: 4, Layout: "tabbed"}, "column 4 [tabbed]"},
		{events.TreeNode{Type: "window", ID: 9, AppID: "foot", Name: "vim"}, `window 9 foot "vim"`},
		{events.TreeNode{Type: "root"}, "root"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := (nodeItem{node: tt.node}).Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNodeItem_Description(t *testing.T) {
	tests := []struct {
		name string
		node events.TreeNode
		want string
	}{
		{
			name: "plain",
			node: events.TreeNode{Type: "window", Rect: events.Rect{X: 10, Y: 20, Width: 300, Height: 200}},
			want: "300x200+10+20",
		},
		{
			name: "visible workspace",
			node: events.TreeNode{Type: "workspace", Active: true, Rect: events.Rect{Width: 1920, Height: 1080}},
			want: "1920x1080+0+0 visible",
		},
		{
			name: "active window is not called visible",
			node: events.TreeNode{Type: "window", Active: true, Focused: true, Rect: events.Rect{Width: 5, Height: 5}},
			want: "5x5+0+0 focused",
		},
		{
			name: "urgent fullscreen",
			node: events.TreeNode{Type: "window", Urgent: true, Fullscreen: "workspace", Rect: events.Rect{Width: 5, Height: 5}},
			want: "5x5+0+0 urgent fullscreen:workspace",
		},
		{
			name: "fullscreen none hidden",
			node: events.TreeNode{Type: "window", Fullscreen: "none", Rect: events.Rect{Width: 5, Height: 5}},
			want: "5x5+0+0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (nodeItem{node: tt.node}).Description(); got != tt.want {
				t.Errorf("Description() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToListItems(t *testing.T) {
	items := toListItems(sampleTree())

	want := []struct {
		typ   string
		id    uint64
		depth int
	}{
		{"output", 2, 0},
		{"workspace", 3, 1},
		{"column", 4, 2},
		{"window", 5, 3},
		{"window", 6, 3},
	}
	if len(items) != len(want) {
		t.Fatalf("len(toListItems()) = %d, want %d", len(items), len(want))
	}
	for i, w := range want {
		ni := items[i].(nodeItem)
		if ni.node.Type != w.typ || ni.node.ID != w.id || ni.depth != w.depth {
			t.Errorf("item %d = %s %d depth %d, want %s %d depth %d",
				i, ni.node.Type, ni.node.ID, ni.depth, w.typ, w.id, w.depth)
		}
	}
}

func TestToListItems_Floating(t *testing.T) {
	root := events.TreeNode{Type: "root", Nodes: []events.TreeNode{{
		Type: "output", Name: "O",
		Nodes: []events.TreeNode{{
			Type: "workspace", Name: "1",
			Floating: []events.TreeNode{{Type: "window", ID: 8}},
		}},
	}}}
	items := toListItems(root)
	if len(items) != 3 {
		t.Fatalf("len(toListItems()) = %d, want 3", len(items))
	}
	if ni := items[2].(nodeItem); ni.node.ID != 8 || ni.depth != 2 {
		t.Errorf("floating item = id %d depth %d, want id 8 depth 2", ni.node.ID, ni.depth)
	}
}

func TestNodeDelegate_Render(t *testing.T) {
	delegate := newNodeDelegate(NewStyles("mocha"))
	items := toListItems(sampleTree())
	l := list.New(items, delegate, 80, 10)

	var buf bytes.Buffer
	delegate.Render(&buf, l, 0, items[0])
	if !strings.Contains(buf.String(), "▸") {
		t.Errorf("selected row %q has no indicator", buf.String())
	}

	buf.Reset()
	delegate.Render(&buf, l, 3, items[3])
	got := buf.String()
	if strings.Contains(got, "▸") {
		t.Errorf("unselected row %q has an indicator", got)
	}
	if !strings.HasPrefix(got, "  "+strings.Repeat("  ", 3)+"window 5") {
		t.Errorf("window row %q not indented by depth", got)
	}
}

func TestNodeDelegate_RenderTruncates(t *testing.T) {
	delegate := newNodeDelegate(NewStyles("mocha"))
	long := events.TreeNode{Type: "window", ID: 1, AppID: "app", Name: strings.Repeat("x", 200)}
	items := []list.Item{nodeItem{node: long}}
	l := list.New(items, delegate, 40, 5)

	var buf bytes.Buffer
	delegate.Render(&buf, l, 0, items[0])
	if w := len([]rune(buf.String())); w > 40 {
		t.Errorf("rendered width = %d, want <= 40", w)
	}
	if !strings.HasSuffix(buf.String(), "…") {
		t.Errorf("truncated row %q should end with an ellipsis", buf.String())
	}
}

func TestNodeDelegate_Dimensions(t *testing.T) {
	d := newNodeDelegate(NewStyles("mocha"))
	if d.Height() != 1 {
		t.Errorf("Height() = %d, want 1", d.Height())
	}
	if d.Spacing() != 0 {
		t.Errorf("Spacing() = %d, want 0", d.Spacing())
	}
}
