package seat

import (
	"testing"

	"tessera/internal/layout"
	"tessera/internal/logging"
	"tessera/internal/transaction"
	"tessera/internal/tree"
)

type recordingKeys struct{ events []KeyEvent }

func (k *recordingKeys) Key(ev KeyEvent) { k.events = append(k.events, ev) }

type harness struct {
	root *tree.Root
	txn  *transaction.Manager
	seat *Seat
	keys *recordingKeys
}

// newHarness builds a tree with one 1920x1080 output. Windows are mapped
// without surfaces, so every transaction applies as soon as it ends.
func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	r, pub := tree.New(logging.NopLogger(), tree.DefaultOptions())
	h := &harness{root: r, keys: &recordingKeys{}}
	h.txn = transaction.New(logging.NopLogger(), pub, transaction.Options{})
	h.seat = New("seat0", logging.NopLogger(), r, h.txn, h.keys, opts)
	h.txn.Run(func() {
		r.AddOutput("HEADLESS-1", layout.Box{Width: 1920, Height: 1080})
	})
	return h
}

func (h *harness) floating(x, y float64) *tree.Window {
	var w *tree.Window
	h.txn.Run(func() {
		w = h.root.MapWindow(nil, tree.MapOptions{Floating: true, Width: 200, Height: 100})
		w.FloatingMoveTo(nil, x, y)
	})
	return w
}

func (h *harness) committed() uint64 { return h.txn.Stats().Committed }

func TestMoveFloatingScenario(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	x := h.floating(90, 90)

	h.seat.WarpCursor(100, 100)
	h.seat.BeginMoveFloating(x)
	if got := h.seat.Op().Name(); got != "move-floating" {
		t.Fatalf("Op() = %q, want move-floating", got)
	}

	before := h.committed()
	h.seat.PointerMotion(MotionEvent{TimeMsec: 1, X: 150, Y: 120})

	box := x.Pending().Box
	if box.X != 140 || box.Y != 110 {
		t.Errorf("window origin = (%v, %v), want (140, 110)", box.X, box.Y)
	}
	if got := h.committed() - before; got != 1 {
		t.Errorf("motion committed %d transactions, want 1", got)
	}
	if x.Current().Box != box {
		t.Error("moved geometry not applied")
	}
}

func TestModifierDragMovesFloatingUntilRelease(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	x := h.floating(100, 100)

	h.seat.SetModifiers(ModLogo)
	h.seat.WarpCursor(150, 150)
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Pressed})
	if got := h.seat.Op().Name(); got != "move-floating" {
		t.Fatalf("Op() = %q after modifier press, want move-floating", got)
	}

	h.seat.PointerMotion(MotionEvent{X: 250, Y: 170})
	if box := x.Pending().Box; box.X != 200 || box.Y != 120 {
		t.Errorf("window origin = (%v, %v), want (200, 120)", box.X, box.Y)
	}

	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Released})
	if got := h.seat.Op().Name(); got != "default" {
		t.Errorf("Op() = %q after release, want default", got)
	}
	if h.seat.PressedButtons() != 0 {
		t.Errorf("PressedButtons() = %d, want 0", h.seat.PressedButtons())
	}
}

func TestReleaseWithButtonsStillHeldKeepsOp(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	x := h.floating(100, 100)

	h.seat.WarpCursor(150, 150)
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Pressed})
	h.seat.PointerButton(ButtonEvent{Button: BtnMiddle, State: Pressed})
	h.seat.BeginMoveFloating(x)
	h.seat.PointerButton(ButtonEvent{Button: BtnMiddle, State: Released})
	if got := h.seat.Op().Name(); got != "move-floating" {
		t.Errorf("Op() = %q with a button still held, want move-floating", got)
	}
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Released})
	if got := h.seat.Op().Name(); got != "default" {
		t.Errorf("Op() = %q, want default", got)
	}
}

func TestDestroyingDraggedWindowReturnsToDefault(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	x := h.floating(100, 100)
	h.seat.WarpCursor(150, 150)
	h.seat.BeginMoveFloating(x)

	var opDuringDestroy string
	h.root.OnDestroy(func(tree.NodeRef) { opDuringDestroy = h.seat.Op().Name() })
	h.txn.Run(func() { h.root.UnmapWindow(x) })

	if opDuringDestroy != "default" {
		t.Errorf("op when later destroy listeners ran = %q, want default", opDuringDestroy)
	}
	if got := h.seat.Op().Name(); got != "default" {
		t.Fatalf("Op() = %q, want default", got)
	}
	h.seat.PointerMotion(MotionEvent{X: 400, Y: 400})
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Released})
}

func TestDestroyingUnrelatedWindowKeepsOp(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	x := h.floating(100, 100)
	other := h.floating(600, 600)
	h.seat.BeginMoveFloating(x)

	h.txn.Run(func() { h.root.UnmapWindow(other) })
	if got := h.seat.Op().Name(); got != "move-floating" {
		t.Errorf("Op() = %q, want move-floating", got)
	}
}

func TestResizeFloating(t *testing.T) {
	tests := []struct {
		name   string
		edge   tree.Edge
		moveTo [2]float64
		want   layout.Box
	}{
		{
			name:   "bottom right grows",
			edge:   tree.EdgeRight | tree.EdgeBottom,
			moveTo: [2]float64{350, 250},
			want:   layout.Box{X: 100, Y: 100, Width: 254, Height: 156},
		},
		{
			name:   "left edge keeps right edge fixed",
			edge:   tree.EdgeLeft | tree.EdgeBottom,
			moveTo: [2]float64{250, 220},
			want:   layout.Box{X: 50, Y: 100, Width: 254, Height: 126},
		},
		{
			name:   "shrinking stops at the minimum size",
			edge:   tree.EdgeLeft | tree.EdgeBottom,
			moveTo: [2]float64{1300, 220},
			want:   layout.Box{X: 225, Y: 100, Width: 79, Height: 126},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultOptions())
			x := h.floating(100, 100)
			if got := x.Pending().Box; got.Width != 204 || got.Height != 126 {
				t.Fatalf("initial box = %+v, want 204x126", got)
			}

			h.seat.WarpCursor(300, 220)
			h.seat.BeginResizeFloating(x, tt.edge)
			if !x.Pending().Resizing {
				t.Error("resizing flag not set")
			}
			h.seat.PointerMotion(MotionEvent{X: tt.moveTo[0], Y: tt.moveTo[1]})

			if got := x.Pending().Box; got != tt.want {
				t.Errorf("box = %+v, want %+v", got, tt.want)
			}

			h.seat.PointerButton(ButtonEvent{Button: BtnRight, State: Released})
			if x.Pending().Resizing {
				t.Error("resizing flag kept after release")
			}
			if h.seat.Op().Name() != "default" {
				t.Errorf("Op() = %q, want default", h.seat.Op().Name())
			}
		})
	}
}

func TestReplacingOpRunsEnd(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	x := h.floating(100, 100)
	h.seat.BeginResizeFloating(x, tree.EdgeRight)

	h.seat.BeginDefault()
	if x.Pending().Resizing {
		t.Error("End did not clear the resizing flag")
	}
}

func twoColumns(h *harness) (a, b *tree.Window) {
	h.txn.Run(func() {
		a = h.root.MapWindow(nil, tree.MapOptions{})
		b = h.root.MapWindow(nil, tree.MapOptions{})
		h.root.MoveInDirection(b, tree.DirRight)
	})
	return a, b
}

func TestResizeTiling(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	a, b := twoColumns(h)

	h.seat.WarpCursor(900, 500)
	h.seat.BeginResizeTiling(a, tree.EdgeRight|tree.EdgeBottom)
	if !a.Pending().Resizing {
		t.Error("resizing flag not set on the column")
	}

	h.seat.PointerMotion(MotionEvent{X: 1000, Y: 500})
	if a.Pending().Box.Width != 1060 || b.Pending().Box.Width != 860 {
		t.Errorf("widths = %v, %v, want 1060, 860", a.Pending().Box.Width, b.Pending().Box.Width)
	}
	h.seat.PointerMotion(MotionEvent{X: 950, Y: 500})
	if a.Pending().Box.Width != 1010 {
		t.Errorf("width after moving back = %v, want 1010", a.Pending().Box.Width)
	}

	h.seat.PointerButton(ButtonEvent{Button: BtnRight, State: Released})
	if a.Pending().Resizing {
		t.Error("resizing flag kept after release")
	}
	if h.seat.Op().Name() != "default" {
		t.Errorf("Op() = %q, want default", h.seat.Op().Name())
	}
}

func TestResizeTilingUnref(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	a, _ := twoColumns(h)
	h.seat.BeginResizeTiling(a, tree.EdgeRight)

	h.txn.Run(func() { h.root.UnmapWindow(a) })
	if h.seat.Op().Name() != "default" {
		t.Errorf("Op() = %q, want default", h.seat.Op().Name())
	}
}

func TestResizeTilingClearsWindowsThatLeftTheColumn(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	var a, b *tree.Window
	h.txn.Run(func() {
		a = h.root.MapWindow(nil, tree.MapOptions{})
		b = h.root.MapWindow(nil, tree.MapOptions{})
	})
	if a.Column() != b.Column() {
		t.Fatal("windows not stacked in one column")
	}

	h.seat.WarpCursor(900, 800)
	h.seat.PointerButton(ButtonEvent{Button: BtnRight, State: Pressed})
	h.seat.BeginResizeTiling(b, tree.EdgeRight|tree.EdgeBottom)
	if !a.Pending().Resizing || !b.Pending().Resizing {
		t.Fatal("resizing flag not set on the column")
	}

	h.txn.Run(func() { b.MoveToFloating() })
	h.seat.PointerMotion(MotionEvent{X: 950, Y: 800})
	h.seat.PointerButton(ButtonEvent{Button: BtnRight, State: Released})

	if h.seat.Op().Name() != "default" {
		t.Errorf("Op() = %q, want default", h.seat.Op().Name())
	}
	for name, w := range map[string]*tree.Window{"A": a, "B": b} {
		if w.Pending().Resizing || w.Current().Resizing {
			t.Errorf("%s still resizing after release", name)
		}
	}
}

func TestResizeTilingEndsWhenColumnIsDestroyed(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	a, _ := twoColumns(h)
	col := a.Column()

	h.seat.WarpCursor(900, 500)
	h.seat.BeginResizeTiling(a, tree.EdgeRight)
	h.txn.Run(func() { a.MoveToFloating() })

	if !col.Dead() {
		t.Fatal("emptied column not destroyed")
	}
	if h.seat.Op().Name() != "default" {
		t.Errorf("Op() = %q, want default", h.seat.Op().Name())
	}
	if a.Pending().Resizing {
		t.Error("resizing flag kept after the column died")
	}
}

func TestMoveTilingForgetsDestroyedTarget(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	a, b := twoColumns(h)
	home := b.Column()

	h.seat.WarpCursor(1500, 500)
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Pressed})
	h.seat.BeginMoveTiling(b)
	h.seat.PointerMotion(MotionEvent{X: 100, Y: 100})
	target := a.Column()
	if !target.Pending().ShowPreview {
		t.Fatal("drop preview not shown on the other column")
	}

	h.txn.Run(func() { h.root.UnmapWindow(a) })
	if !target.Dead() {
		t.Fatal("target column not destroyed")
	}
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Released})

	if b.Column() != home {
		t.Error("window dropped into a destroyed column")
	}
	if h.seat.Op().Name() != "default" {
		t.Errorf("Op() = %q, want default", h.seat.Op().Name())
	}
	if err := h.root.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestMoveTilingDrop(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	var a, b *tree.Window
	h.txn.Run(func() {
		a = h.root.MapWindow(nil, tree.MapOptions{})
		b = h.root.MapWindow(nil, tree.MapOptions{})
	})
	col := a.Column()

	h.seat.WarpCursor(100, 800)
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Pressed})
	h.seat.BeginMoveTiling(b)

	before := h.committed()
	h.seat.PointerMotion(MotionEvent{X: 103, Y: 804})
	if h.committed() != before {
		t.Error("motion under the drag threshold committed a transaction")
	}

	h.seat.PointerMotion(MotionEvent{X: 100, Y: 100})
	if !col.Pending().ShowPreview {
		t.Fatal("drop preview not shown")
	}

	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Released})
	if got := col.IndexOf(b); got != 0 {
		t.Errorf("dropped window index = %d, want 0", got)
	}
	if col.Pending().ShowPreview {
		t.Error("preview still shown after drop")
	}
	if h.root.FocusedWindow() != b {
		t.Error("dropped window not focused")
	}
	if h.seat.Op().Name() != "default" {
		t.Errorf("Op() = %q, want default", h.seat.Op().Name())
	}
	if err := h.root.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestMoveTilingReleaseBeforeThresholdDoesNothing(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	var a, b *tree.Window
	h.txn.Run(func() {
		a = h.root.MapWindow(nil, tree.MapOptions{})
		b = h.root.MapWindow(nil, tree.MapOptions{})
	})

	h.seat.WarpCursor(100, 800)
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Pressed})
	h.seat.BeginMoveTiling(b)
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Released})

	if a.Column().IndexOf(b) != 1 {
		t.Error("window moved without a drag")
	}
	if h.seat.Op().Name() != "default" {
		t.Errorf("Op() = %q, want default", h.seat.Op().Name())
	}
}

func TestClickFocuses(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	a, b := twoColumns(h)
	if h.root.FocusedWindow() != b {
		t.Fatal("setup: B not focused")
	}

	h.seat.WarpCursor(100, 100)
	h.seat.PointerButton(ButtonEvent{Button: BtnLeft, State: Pressed})
	if h.root.FocusedWindow() != a {
		t.Errorf("focused = %v, want A", h.root.FocusedWindow())
	}
	if h.seat.Op().Name() != "default" {
		t.Errorf("plain click changed op to %q", h.seat.Op().Name())
	}
}

func TestFocusFollowsMouse(t *testing.T) {
	opts := DefaultOptions()
	opts.FocusFollowsMouse = true
	h := newHarness(t, opts)
	a, b := twoColumns(h)

	h.seat.PointerMotion(MotionEvent{X: 100, Y: 100})
	if h.root.FocusedWindow() != a {
		t.Errorf("focused = %v, want A under the cursor", h.root.FocusedWindow())
	}
	h.seat.PointerMotion(MotionEvent{X: 1500, Y: 100})
	if h.root.FocusedWindow() != b {
		t.Errorf("focused = %v, want B under the cursor", h.root.FocusedWindow())
	}
}

func TestTabletMotionFallsBackToPointerMotion(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	x := h.floating(90, 90)
	h.seat.WarpCursor(100, 100)
	h.seat.BeginMoveFloating(x)

	h.seat.TabletToolMotion(TabletMotionEvent{X: 150, Y: 120})
	if box := x.Pending().Box; box.X != 140 || box.Y != 110 {
		t.Errorf("window origin = (%v, %v), want (140, 110)", box.X, box.Y)
	}
}

func TestTabletTipFocuses(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	a, _ := twoColumns(h)
	h.seat.TabletToolMotion(TabletMotionEvent{X: 100, Y: 100})
	h.seat.TabletToolTip(TabletTipEvent{Down: true})
	if h.root.FocusedWindow() != a {
		t.Errorf("focused = %v, want A", h.root.FocusedWindow())
	}
}

func TestKeyForwardsAndTracksModifiers(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.seat.Key(KeyEvent{Keycode: 38, Pressed: true, Modifiers: ModLogo | ModShift})

	if h.seat.Modifiers() != ModLogo|ModShift {
		t.Errorf("Modifiers() = %b, want logo|shift", h.seat.Modifiers())
	}
	if len(h.keys.events) != 1 || h.keys.events[0].Keycode != 38 {
		t.Errorf("forwarded keys = %+v", h.keys.events)
	}
}

func TestUnsetHandlersAreNoops(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	x := h.floating(100, 100)
	h.seat.BeginMoveFloating(x)

	h.seat.PointerAxis(AxisEvent{Delta: 15})
	h.seat.TabletToolTip(TabletTipEvent{Down: true})
	h.seat.Rebase(0)
	if h.seat.Op().Name() != "move-floating" {
		t.Errorf("Op() = %q, want move-floating", h.seat.Op().Name())
	}
}
