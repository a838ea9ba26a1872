package command

import (
	"errors"
	"testing"

	"tessera/internal/layout"
	"tessera/internal/logging"
	"tessera/internal/transaction"
	"tessera/internal/tree"
)

type fakeLauncher struct {
	commands []string
	pid      int
	err      error
}

func (l *fakeLauncher) Launch(cmd string) (int, error) {
	l.commands = append(l.commands, cmd)
	return l.pid, l.err
}

type closingSurface struct{ closed bool }

func (s *closingSurface) Configure(tree.ConfigureRequest) uint32 { return 1 }
func (s *closingSurface) Close()                                 { s.closed = true }
func (s *closingSurface) PID() int                               { return 0 }
func (s *closingSurface) AppID() string                          { return "test" }
func (s *closingSurface) Title() string                          { return "test" }

type harness struct {
	root     *tree.Root
	txn      *transaction.Manager
	runner   *Runner
	launcher *fakeLauncher
}

// newHarness builds a tree with one 1920x1080 output and the default
// options. Windows are mapped without surfaces unless a test says so.
func newHarness(t *testing.T) *harness {
	t.Helper()
	r, pub := tree.New(logging.NopLogger(), tree.DefaultOptions())
	h := &harness{root: r, launcher: &fakeLauncher{pid: 4242}}
	h.txn = transaction.New(logging.NopLogger(), pub, transaction.Options{})
	h.runner = New(logging.NopLogger(), r, h.txn, h.launcher)
	h.txn.Run(func() {
		r.AddOutput("HEADLESS-1", layout.Box{Width: 1920, Height: 1080})
	})
	return h
}

func (h *harness) mapWindow(opts tree.MapOptions) *tree.Window {
	var w *tree.Window
	h.txn.Run(func() { w = h.root.MapWindow(nil, opts) })
	return w
}

// exec runs line and fails the test unless every command succeeded.
func (h *harness) exec(t *testing.T, line string) {
	t.Helper()
	for _, res := range h.runner.Execute(line) {
		if res.Status != StatusSuccess {
			t.Fatalf("Execute(%q) = %v (%v), want success", res.Command, res.Status, res.Err)
		}
	}
}

func (h *harness) one(t *testing.T, line string) Result {
	t.Helper()
	results := h.runner.Execute(line)
	if len(results) != 1 {
		t.Fatalf("Execute(%q) returned %d results, want 1", line, len(results))
	}
	return results[0]
}

func TestSplitCommands(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"nop", []string{"nop"}},
		{"nop; kill", []string{"nop", "kill"}},
		{"  ;  ; nop ;", []string{"nop"}},
		{`exec sh -c "a; b"`, []string{`exec sh -c "a; b"`}},
		{`workspace 'x;y'; nop`, []string{`workspace 'x;y'`, "nop"}},
		{`exec echo a\;b`, []string{`exec echo a\;b`}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := splitCommands(tt.line)
			if len(got) != len(tt.want) {
				t.Fatalf("splitCommands() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitCommands()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParsePixels(t *testing.T) {
	tests := []struct {
		args    []string
		want    float64
		used    int
		wantErr bool
	}{
		{[]string{"10"}, 10, 1, false},
		{[]string{"10px"}, 10, 1, false},
		{[]string{"10", "px"}, 10, 2, false},
		{[]string{"-4"}, -4, 1, false},
		{[]string{"ten"}, 0, 0, true},
		{nil, 0, 0, true},
	}

	for _, tt := range tests {
		got, used, err := parsePixels(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePixels(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want || used != tt.used {
			t.Errorf("parsePixels(%q) = %v, %d, want %v, %d", tt.args, got, used, tt.want, tt.used)
		}
	}
}

func TestUnknownCommandIsInvalid(t *testing.T) {
	h := newHarness(t)
	res := h.one(t, "frobnicate now")
	if res.Status != StatusInvalid {
		t.Errorf("Status = %v, want invalid", res.Status)
	}
	if !errors.Is(res.Err, ErrInvalidArgs) {
		t.Errorf("Err = %v, want ErrInvalidArgs", res.Err)
	}
}

func TestUnterminatedQuoteIsInvalid(t *testing.T) {
	h := newHarness(t)
	if res := h.one(t, `workspace "oops`); res.Status != StatusInvalid {
		t.Errorf("Status = %v, want invalid", res.Status)
	}
}

func TestInvalidArgsLeaveTreeUntouched(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{})
	before := w.Pending()
	committed := h.txn.Stats().Committed

	lines := []string{
		"resize grow sideways 10",
		"resize grow width ten",
		"border wobbly",
		"border none 3",
		"gaps inner current set lots",
		"gaps inner sometimes set 3",
		"floating maybe",
		"fullscreen enable twice global",
		"layout tabbed",
		"focus sideways",
		"move to output HDMI-A-1",
		"titlebar_height -3",
		"rename workspace 1",
		"kill -9",
		"exec",
		"workspace",
	}
	for _, line := range lines {
		if res := h.one(t, line); res.Status != StatusInvalid {
			t.Errorf("Execute(%q) = %v (%v), want invalid", line, res.Status, res.Err)
		}
	}

	if got := w.Pending(); got != before {
		t.Errorf("window state changed: %+v, want %+v", got, before)
	}
	if got := h.txn.Stats().Committed; got != committed {
		t.Errorf("invalid commands committed %d transactions", got-committed)
	}
	if len(h.launcher.commands) != 0 {
		t.Errorf("launcher ran %q", h.launcher.commands)
	}
}

func TestMissingTargetFails(t *testing.T) {
	h := newHarness(t)
	for _, line := range []string{"kill", "floating toggle", "fullscreen", "layout stacked", "move left", "focus floating"} {
		res := h.one(t, line)
		if res.Status != StatusFailure {
			t.Errorf("Execute(%q) = %v, want failure", line, res.Status)
		}
		if !errors.Is(res.Err, tree.ErrNotFound) {
			t.Errorf("Execute(%q) error = %v, want ErrNotFound", line, res.Err)
		}
	}
}

func TestLineIsOneTransaction(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{})
	committed := h.txn.Stats().Committed

	results := h.runner.Execute("layout stacked; border pixel 3; nop")
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if got := h.txn.Stats().Committed - committed; got != 1 {
		t.Errorf("line committed %d transactions, want 1", got)
	}
	if w.Column().Current().Layout != tree.LayoutStacked {
		t.Error("layout not applied")
	}
	if s := w.Current(); s.Border != tree.BorderPixel || s.BorderThickness != 3 {
		t.Errorf("border = %v %v, want pixel 3", s.Border, s.BorderThickness)
	}
}

func TestLaterCommandsRunAfterAFailure(t *testing.T) {
	h := newHarness(t)
	results := h.runner.Execute("kill; workspace 3")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Status != StatusFailure || results[1].Status != StatusSuccess {
		t.Errorf("statuses = %v, %v, want failure, success", results[0].Status, results[1].Status)
	}
	if got := h.root.ActiveWorkspace().Name(); got != "3" {
		t.Errorf("active workspace = %q, want 3", got)
	}
}

func TestFocusDirection(t *testing.T) {
	h := newHarness(t)
	a := h.mapWindow(tree.MapOptions{})
	b := h.mapWindow(tree.MapOptions{})

	h.exec(t, "focus up")
	if h.root.FocusedWindow() != a {
		t.Errorf("focused = %v, want A", h.root.FocusedWindow().ID())
	}
	h.exec(t, "focus down")
	if h.root.FocusedWindow() != b {
		t.Errorf("focused = %v, want B", h.root.FocusedWindow().ID())
	}
	if h.root.Current().FocusedWindow != b.ID() {
		t.Error("focus change not applied")
	}
}

func TestFocusModes(t *testing.T) {
	h := newHarness(t)
	tiled := h.mapWindow(tree.MapOptions{})
	if res := h.one(t, "focus floating"); res.Status != StatusFailure {
		t.Errorf("focus floating with no floating window = %v, want failure", res.Status)
	}
	float := h.mapWindow(tree.MapOptions{Floating: true})
	if h.root.FocusedWindow() != float {
		t.Fatal("new floating window not focused")
	}

	h.exec(t, "focus tiling")
	if h.root.FocusedWindow() != tiled {
		t.Error("focus tiling did not focus the tiled window")
	}
	h.exec(t, "focus mode_toggle")
	if h.root.FocusedWindow() != float {
		t.Error("focus mode_toggle did not return to the floating window")
	}
	h.exec(t, "focus mode_toggle")
	if h.root.FocusedWindow() != tiled {
		t.Error("second focus mode_toggle did not return to the tiled window")
	}
}

func TestMoveToWorkspace(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"move container to workspace 2", "2"},
		{"move window to workspace 2", "2"},
		{"move to workspace 2", "2"},
		{`move to workspace "my code"`, "my code"},
		{"move to workspace my code", "my code"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			h := newHarness(t)
			w := h.mapWindow(tree.MapOptions{})
			h.exec(t, tt.line)
			if got := w.Workspace().Name(); got != tt.want {
				t.Errorf("workspace = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoveInDirection(t *testing.T) {
	h := newHarness(t)
	h.mapWindow(tree.MapOptions{})
	b := h.mapWindow(tree.MapOptions{})

	h.exec(t, "move right")
	ws := h.root.ActiveWorkspace()
	if len(ws.Columns()) != 2 {
		t.Fatalf("columns = %d, want 2", len(ws.Columns()))
	}
	if b.Column() != ws.Columns()[1] {
		t.Error("B is not in the right column")
	}
}

func TestMoveFloatingByPixels(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{Floating: true, Width: 200, Height: 100})
	start := w.Pending().Box

	h.exec(t, "move left 20 px")
	h.exec(t, "move down 5px")
	h.exec(t, "move right")

	got := w.Pending().Box
	if got.X != start.X-20+defaultMoveAmount || got.Y != start.Y+5 {
		t.Errorf("origin = (%v, %v), want (%v, %v)", got.X, got.Y, start.X-20+defaultMoveAmount, start.Y+5)
	}
}

func TestFloatingToggle(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{})

	h.exec(t, "floating toggle")
	if !w.Floating() {
		t.Fatal("floating toggle did not float the window")
	}
	h.exec(t, "floating enable")
	if !w.Floating() {
		t.Error("floating enable on a floating window tiled it")
	}
	h.exec(t, "floating disable")
	if w.Floating() {
		t.Error("floating disable left the window floating")
	}
}

func TestFullscreenCommands(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{})

	steps := []struct {
		line string
		want tree.FullscreenMode
	}{
		{"fullscreen", tree.FullscreenWorkspace},
		{"fullscreen toggle global", tree.FullscreenGlobal},
		{"fullscreen enable", tree.FullscreenWorkspace},
		{"fullscreen enable", tree.FullscreenWorkspace},
		{"fullscreen disable", tree.FullscreenNone},
		{"fullscreen global", tree.FullscreenGlobal},
		{"fullscreen toggle global", tree.FullscreenNone},
	}
	for _, step := range steps {
		h.exec(t, step.line)
		if got := w.Current().Fullscreen; got != step.want {
			t.Errorf("after %q: fullscreen = %v, want %v", step.line, got, step.want)
		}
	}
}

func TestLayoutCommands(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{})

	steps := []struct {
		line string
		want tree.ColumnLayout
	}{
		{"layout stacked", tree.LayoutStacked},
		{"layout toggle", tree.LayoutSplit},
		{"layout toggle", tree.LayoutStacked},
		{"layout split", tree.LayoutSplit},
	}
	for _, step := range steps {
		h.exec(t, step.line)
		if got := w.Column().Pending().Layout; got != step.want {
			t.Errorf("after %q: layout = %v, want %v", step.line, got, step.want)
		}
	}

	h.exec(t, "floating enable")
	if res := h.one(t, "layout stacked"); res.Status != StatusFailure {
		t.Errorf("layout on a floating window = %v, want failure", res.Status)
	}
}

func TestResizeTiledWidth(t *testing.T) {
	h := newHarness(t)
	a := h.mapWindow(tree.MapOptions{})
	b := h.mapWindow(tree.MapOptions{})
	h.exec(t, "move right")

	// B is in the last column, so growing it takes space from the left.
	h.exec(t, "resize grow width 100px")
	if a.Pending().Box.Width != 860 || b.Pending().Box.Width != 1060 {
		t.Errorf("widths = %v, %v, want 860, 1060", a.Pending().Box.Width, b.Pending().Box.Width)
	}

	h.exec(t, "resize shrink width 60 px")
	if b.Pending().Box.Width != 1000 {
		t.Errorf("B width = %v, want 1000", b.Pending().Box.Width)
	}

	if res := h.one(t, "resize grow height 10"); res.Status != StatusFailure {
		t.Errorf("resize height of a lone window = %v, want failure", res.Status)
	}
}

func TestResizeFloating(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{Floating: true, Width: 200, Height: 100})
	before := w.Pending().Content

	h.exec(t, "resize grow width 50; resize shrink height 20")
	got := w.Pending().Content
	if got.Width != before.Width+50 || got.Height != before.Height-20 {
		t.Errorf("content = %vx%v, want %vx%v", got.Width, got.Height, before.Width+50, before.Height-20)
	}
}

func TestBorderCommands(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{})

	steps := []struct {
		line      string
		mode      tree.BorderMode
		thickness float64
	}{
		{"border pixel 5", tree.BorderPixel, 5},
		{"border toggle", tree.BorderNone, 5},
		{"border toggle", tree.BorderNormal, 5},
		{"border normal 1", tree.BorderNormal, 1},
		{"border toggle", tree.BorderPixel, 1},
	}
	for _, step := range steps {
		h.exec(t, step.line)
		s := w.Pending()
		if s.Border != step.mode || s.BorderThickness != step.thickness {
			t.Errorf("after %q: border = %v %v, want %v %v", step.line, s.Border, s.BorderThickness, step.mode, step.thickness)
		}
	}
}

func TestGapsCommands(t *testing.T) {
	h := newHarness(t)
	h.mapWindow(tree.MapOptions{})
	ws := h.root.ActiveWorkspace()

	steps := []struct {
		line         string
		inner, outer float64
	}{
		{"gaps inner current set 10", 10, 0},
		{"gaps inner current plus 5", 15, 0},
		{"gaps outer all set 4px", 15, 4},
		{"gaps inner current minus 100", 0, 4},
		{"gaps inner 7", 0, 4},
	}
	for _, step := range steps {
		h.exec(t, step.line)
		if in, out := ws.Gaps(); in != step.inner || out != step.outer {
			t.Errorf("after %q: gaps = %v, %v, want %v, %v", step.line, in, out, step.inner, step.outer)
		}
	}

	h.exec(t, "workspace 2")
	if in, _ := h.root.ActiveWorkspace().Gaps(); in != 7 {
		t.Errorf("new workspace inner gap = %v, want 7", in)
	}
}

func TestOuterGapsShrinkTiling(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{})
	h.exec(t, "gaps outer current set 20")

	want := layout.Box{X: 20, Y: 20, Width: 1880, Height: 1040}
	if got := w.Current().Box; got != want {
		t.Errorf("box = %+v, want %+v", got, want)
	}
}

func TestTitlebarHeight(t *testing.T) {
	h := newHarness(t)
	w := h.mapWindow(tree.MapOptions{})
	h.exec(t, "titlebar_height 30")

	want := layout.Box{X: 2, Y: 30, Width: 1916, Height: 1048}
	if got := w.Current().Content; got != want {
		t.Errorf("content = %+v, want %+v", got, want)
	}
}

func TestWorkspaceAndRename(t *testing.T) {
	h := newHarness(t)
	h.mapWindow(tree.MapOptions{})

	h.exec(t, "workspace 2")
	if got := h.root.ActiveWorkspace().Name(); got != "2" {
		t.Fatalf("active workspace = %q, want 2", got)
	}

	if res := h.one(t, "rename workspace to 1"); res.Status != StatusFailure {
		t.Errorf("rename onto an existing name = %v, want failure", res.Status)
	}
	h.exec(t, "rename workspace to two")
	if got := h.root.ActiveWorkspace().Name(); got != "two" {
		t.Errorf("active workspace = %q, want two", got)
	}
	h.exec(t, `rename workspace 1 to "web stuff"`)
	if h.root.WorkspaceByName("web stuff") == nil {
		t.Error("workspace 1 was not renamed")
	}
	if res := h.one(t, "rename workspace 9 to nine"); !errors.Is(res.Err, tree.ErrNotFound) {
		t.Errorf("rename of a missing workspace error = %v, want ErrNotFound", res.Err)
	}
}

func TestKillClosesFocusedWindow(t *testing.T) {
	h := newHarness(t)
	s := &closingSurface{}
	h.txn.Run(func() { h.root.MapWindow(s, tree.MapOptions{}) })

	h.exec(t, "kill")
	if !s.closed {
		t.Error("kill did not close the surface")
	}
}

func TestExecRecordsPID(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "workspace code")
	h.exec(t, `exec foot --title "a b"`)

	if len(h.launcher.commands) != 1 || h.launcher.commands[0] != `foot --title "a b"` {
		t.Errorf("launched %q, want the raw command", h.launcher.commands)
	}
	if name, ok := h.root.WorkspaceForPID(4242); !ok || name != "code" {
		t.Errorf("WorkspaceForPID() = %q, %v, want code, true", name, ok)
	}
}

func TestExecFailures(t *testing.T) {
	h := newHarness(t)
	h.launcher.err = errors.New("no such file")
	if res := h.one(t, "exec nothing-here"); res.Status != StatusFailure {
		t.Errorf("failed launch = %v, want failure", res.Status)
	}

	r, pub := tree.New(logging.NopLogger(), tree.DefaultOptions())
	bare := New(nil, r, transaction.New(nil, pub, transaction.Options{}), nil)
	if res := bare.Execute("exec true"); res[0].Status != StatusFailure {
		t.Errorf("exec without a launcher = %v, want failure", res[0].Status)
	}
}

func TestResultEvent(t *testing.T) {
	ok := Result{Command: "nop", Status: StatusSuccess}.Event()
	if !ok.Success || ok.Status != "success" || ok.Error != "" {
		t.Errorf("Event() = %+v, want a bare success", ok)
	}
	bad := Result{Command: "x", Status: StatusInvalid, Err: ErrInvalidArgs}.Event()
	if bad.Success || bad.Status != "invalid" || bad.Error != "invalid arguments" {
		t.Errorf("Event() = %+v, want an invalid result", bad)
	}
}
