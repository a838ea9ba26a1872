package command

import (
	"errors"
	"fmt"
	"strings"

	"tessera/internal/tree"
)

// defaultMoveAmount is how far a floating window moves when move gives no
// distance.
const defaultMoveAmount = 10

func cmdNop(*Runner, call) error { return nil }

// focus <direction|floating|tiling|mode_toggle>
func cmdFocus(r *Runner, c call) error {
	if len(c.args) != 1 {
		return invalidf("expected 'focus <direction|mode_toggle|floating|tiling>'")
	}
	arg := strings.ToLower(c.args[0])

	switch arg {
	case "floating", "tiling", "mode_toggle":
		ws := r.root.ActiveWorkspace()
		if ws == nil {
			return fmt.Errorf("no active workspace: %w", tree.ErrNotFound)
		}
		floating := arg == "floating"
		if arg == "mode_toggle" {
			w := r.root.FocusedWindow()
			floating = w == nil || !w.Floating()
		}
		target := ws.ActiveTilingWindow()
		if floating {
			target = ws.ActiveFloatingWindow()
		}
		if target == nil {
			kind := "tiling"
			if floating {
				kind = "floating"
			}
			return fmt.Errorf("no %s window: %w", kind, tree.ErrNotFound)
		}
		r.root.SetFocusedWindow(target)
		return nil
	}

	dir, ok := tree.ParseDirection(arg)
	if !ok {
		return invalidf("expected 'focus <direction|mode_toggle|floating|tiling>'")
	}
	w, err := r.focused()
	if err != nil {
		return err
	}
	if next := r.root.WindowInDirection(w, dir); next != nil {
		r.root.SetFocusedWindow(next)
	}
	return nil
}

// move <direction> [<px> [px]]
// move [container|window] to workspace <name>
func cmdMove(r *Runner, c call) error {
	args := c.args
	if len(args) == 0 {
		return invalidf("expected 'move <direction>' or 'move to workspace <name>'")
	}

	if dir, ok := tree.ParseDirection(strings.ToLower(args[0])); ok {
		amount := float64(defaultMoveAmount)
		if len(args) > 1 {
			n, used, err := parsePixels(args[1:])
			if err != nil {
				return err
			}
			if 1+used != len(args) {
				return invalidf("unexpected %q", args[1+used])
			}
			amount = n
		}
		w, err := r.focused()
		if err != nil {
			return err
		}
		if w.Floating() {
			box := w.Pending().Box
			switch dir {
			case tree.DirLeft:
				box.X -= amount
			case tree.DirRight:
				box.X += amount
			case tree.DirUp:
				box.Y -= amount
			case tree.DirDown:
				box.Y += amount
			}
			w.FloatingMoveTo(nil, box.X, box.Y)
			return nil
		}
		r.root.MoveInDirection(w, dir)
		return nil
	}

	if a := strings.ToLower(args[0]); a == "container" || a == "window" {
		args = args[1:]
	}
	if len(args) < 3 || !strings.EqualFold(args[0], "to") || !strings.EqualFold(args[1], "workspace") {
		return invalidf("expected 'move [container|window] to workspace <name>'")
	}
	name := strings.Join(args[2:], " ")
	w, err := r.focused()
	if err != nil {
		return err
	}
	if r.root.MoveWindowToWorkspace(w, name) == nil {
		return fmt.Errorf("move window %d: %w", w.ID(), tree.ErrDead)
	}
	return nil
}

// parseToggle parses enable|disable|toggle against the current value.
func parseToggle(arg string, current bool) (bool, bool) {
	switch strings.ToLower(arg) {
	case "enable", "yes", "true", "on":
		return true, true
	case "disable", "no", "false", "off":
		return false, true
	case "toggle":
		return !current, true
	}
	return false, false
}

// floating enable|disable|toggle
func cmdFloating(r *Runner, c call) error {
	if len(c.args) != 1 {
		return invalidf("expected 'floating enable|disable|toggle'")
	}
	if _, ok := parseToggle(c.args[0], false); !ok {
		return invalidf("expected 'floating enable|disable|toggle'")
	}
	w, err := r.focused()
	if err != nil {
		return err
	}
	float, _ := parseToggle(c.args[0], w.Floating())
	if float {
		w.MoveToFloating()
	} else {
		w.MoveToTiling()
	}
	return nil
}

// fullscreen [enable|disable|toggle] [global]
func cmdFullscreen(r *Runner, c call) error {
	args := c.args
	mode := tree.FullscreenWorkspace
	if n := len(args); n > 0 && strings.EqualFold(args[n-1], "global") {
		mode = tree.FullscreenGlobal
		args = args[:n-1]
	}
	action := "toggle"
	switch len(args) {
	case 0:
	case 1:
		action = args[0]
	default:
		return invalidf("expected 'fullscreen [enable|disable|toggle] [global]'")
	}
	if _, ok := parseToggle(action, false); !ok {
		return invalidf("expected 'fullscreen [enable|disable|toggle] [global]'")
	}

	w, err := r.focused()
	if err != nil {
		return err
	}
	current := w.Pending().Fullscreen
	enable, _ := parseToggle(action, current != tree.FullscreenNone)
	// Toggling one scope while in the other switches scope.
	if strings.EqualFold(action, "toggle") && current != tree.FullscreenNone && current != mode {
		enable = true
	}
	if enable {
		w.SetFullscreen(mode)
	} else {
		w.SetFullscreen(tree.FullscreenNone)
	}
	return nil
}

// layout split|stacked|toggle
func cmdLayout(r *Runner, c call) error {
	if len(c.args) != 1 {
		return invalidf("expected 'layout split|stacked|toggle'")
	}
	var want tree.ColumnLayout
	toggle := false
	switch strings.ToLower(c.args[0]) {
	case "split", "splitv":
		want = tree.LayoutSplit
	case "stacked", "stacking":
		want = tree.LayoutStacked
	case "toggle":
		toggle = true
	default:
		return invalidf("expected 'layout split|stacked|toggle'")
	}

	w, err := r.focused()
	if err != nil {
		return err
	}
	col := w.Column()
	if col == nil {
		return fmt.Errorf("window %d is floating and has no layout: %w", w.ID(), tree.ErrNotFound)
	}
	if toggle {
		want = tree.LayoutStacked
		if col.Pending().Layout == tree.LayoutStacked {
			want = tree.LayoutSplit
		}
	}
	col.SetLayout(want)
	return nil
}

// resize grow|shrink width|height [<px> [px]]
func cmdResize(r *Runner, c call) error {
	const usage = "expected 'resize grow|shrink width|height [<px> [px]]'"
	args := c.args
	if len(args) < 2 {
		return invalidf(usage)
	}
	var sign float64
	switch strings.ToLower(args[0]) {
	case "grow":
		sign = 1
	case "shrink":
		sign = -1
	default:
		return invalidf(usage)
	}
	axis := strings.ToLower(args[1])
	if axis != "width" && axis != "height" {
		return invalidf(usage)
	}
	amount := float64(defaultMoveAmount)
	if len(args) > 2 {
		n, used, err := parsePixels(args[2:])
		if err != nil {
			return err
		}
		if 2+used != len(args) {
			return invalidf(usage)
		}
		amount = n
	}
	amount *= sign

	w, err := r.focused()
	if err != nil {
		return err
	}
	if w.Floating() {
		box := w.Pending().Box
		if axis == "width" {
			box.Width += amount
		} else {
			box.Height += amount
		}
		w.FloatingResize(box)
		return nil
	}

	first, second := tree.EdgeRight, tree.EdgeLeft
	if axis == "height" {
		first, second = tree.EdgeBottom, tree.EdgeTop
	}
	if !w.ResizeTiled(first, amount) && !w.ResizeTiled(second, amount) {
		return fmt.Errorf("window %d has no neighbour to resize against", w.ID())
	}
	return nil
}

// border none|normal [<px>]|pixel [<px>]|toggle
func cmdBorder(r *Runner, c call) error {
	const usage = "expected 'border none|normal|pixel [<px>]|toggle'"
	if len(c.args) == 0 {
		return invalidf(usage)
	}
	thickness := -1.0
	var mode tree.BorderMode
	toggle := false
	switch strings.ToLower(c.args[0]) {
	case "none":
		mode = tree.BorderNone
	case "normal":
		mode = tree.BorderNormal
	case "pixel":
		mode = tree.BorderPixel
	case "csd":
		mode = tree.BorderCSD
	case "toggle":
		toggle = true
	default:
		return invalidf(usage)
	}
	if rest := c.args[1:]; len(rest) > 0 {
		if toggle || mode == tree.BorderNone || mode == tree.BorderCSD {
			return invalidf(usage)
		}
		n, used, err := parsePixels(rest)
		if err != nil {
			return err
		}
		if used != len(rest) || n < 0 {
			return invalidf(usage)
		}
		thickness = n
	}

	w, err := r.focused()
	if err != nil {
		return err
	}
	if toggle {
		switch w.Pending().Border {
		case tree.BorderNone:
			mode = tree.BorderNormal
		case tree.BorderNormal:
			mode = tree.BorderPixel
		default:
			mode = tree.BorderNone
		}
	}
	w.SetBorder(mode, thickness)
	return nil
}

// gaps inner|outer <px>
// gaps inner|outer current|all set|plus|minus <px>
func cmdGaps(r *Runner, c call) error {
	const usage = "expected 'gaps inner|outer <px>' or 'gaps inner|outer current|all set|plus|minus <px>'"
	args := c.args
	if len(args) != 2 && len(args) != 4 {
		return invalidf(usage)
	}
	var inner bool
	switch strings.ToLower(args[0]) {
	case "inner":
		inner = true
	case "outer":
	default:
		return invalidf(usage)
	}

	if len(args) == 2 {
		n, used, err := parsePixels(args[1:])
		if err != nil || used != 1 {
			return invalidf(usage)
		}
		opts := r.root.Options()
		if inner {
			r.root.SetDefaultGaps(n, opts.GapsOuter)
		} else {
			r.root.SetDefaultGaps(opts.GapsInner, n)
		}
		return nil
	}

	var all bool
	switch strings.ToLower(args[1]) {
	case "current":
	case "all":
		all = true
	default:
		return invalidf(usage)
	}
	op := strings.ToLower(args[2])
	if op != "set" && op != "plus" && op != "minus" {
		return invalidf(usage)
	}
	n, used, err := parsePixels(args[3:])
	if err != nil || used != 1 {
		return invalidf(usage)
	}

	apply := func(ws *tree.Workspace) {
		in, out := ws.Gaps()
		prop := &out
		if inner {
			prop = &in
		}
		switch op {
		case "set":
			*prop = n
		case "plus":
			*prop += n
		case "minus":
			*prop -= n
		}
		ws.SetGaps(in, out)
	}
	if all {
		for _, ws := range r.root.Workspaces() {
			apply(ws)
		}
		return nil
	}
	ws := r.root.ActiveWorkspace()
	if ws == nil {
		return fmt.Errorf("no active workspace: %w", tree.ErrNotFound)
	}
	apply(ws)
	return nil
}

// titlebar_height <px>
func cmdTitlebarHeight(r *Runner, c call) error {
	n, used, err := parsePixels(c.args)
	if err != nil || used != len(c.args) || n < 0 {
		return invalidf("expected 'titlebar_height <px>'")
	}
	r.root.SetTitlebarHeight(n)
	return nil
}

// workspace <name>
func cmdWorkspace(r *Runner, c call) error {
	if len(c.args) == 0 {
		return invalidf("expected 'workspace <name>'")
	}
	name := strings.Join(c.args, " ")
	if r.root.ActiveOutput() == nil {
		return fmt.Errorf("no output to show workspace %q on: %w", name, tree.ErrNotFound)
	}
	r.root.SwitchToWorkspace(name)
	return nil
}

// rename workspace [<old>] to <new>
func cmdRename(r *Runner, c call) error {
	const usage = "expected 'rename workspace [<old>] to <new>'"
	args := c.args
	if len(args) < 3 || !strings.EqualFold(args[0], "workspace") {
		return invalidf(usage)
	}
	to := -1
	for i := 1; i < len(args); i++ {
		if strings.EqualFold(args[i], "to") {
			to = i
			break
		}
	}
	if to < 0 || to == len(args)-1 {
		return invalidf(usage)
	}
	newName := strings.Join(args[to+1:], " ")

	ws := r.root.ActiveWorkspace()
	if to > 1 {
		oldName := strings.Join(args[1:to], " ")
		ws = r.root.WorkspaceByName(oldName)
		if ws == nil {
			return fmt.Errorf("workspace %q: %w", oldName, tree.ErrNotFound)
		}
	}
	if ws == nil {
		return fmt.Errorf("no active workspace: %w", tree.ErrNotFound)
	}
	if other := r.root.WorkspaceByName(newName); other != nil && other != ws {
		return fmt.Errorf("workspace %q already exists", newName)
	}
	ws.Rename(newName)
	return nil
}

// kill
func cmdKill(r *Runner, c call) error {
	if len(c.args) != 0 {
		return invalidf("expected 'kill'")
	}
	w, err := r.focused()
	if err != nil {
		return err
	}
	w.Close()
	return nil
}

// exec <command>
func cmdExec(r *Runner, c call) error {
	if c.rest == "" {
		return invalidf("expected 'exec <command>'")
	}
	if r.launcher == nil {
		return errors.New("exec is not available")
	}
	pid, err := r.launcher.Launch(c.rest)
	if err != nil {
		return fmt.Errorf("exec %q: %w", c.rest, err)
	}
	if ws := r.root.ActiveWorkspace(); ws != nil {
		r.root.RecordWorkspacePID(pid, ws.Name())
	}
	r.log.Info("launched", "command", c.rest, "pid", pid)
	return nil
}
