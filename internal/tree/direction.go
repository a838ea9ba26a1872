// pattern: Functional Core

package tree

import (
	"math"
	"slices"
)

// Direction is a focus or move direction.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

func (d Direction) String() string {
	switch d {
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	}
	return "unknown"
}

// ParseDirection parses left, right, up or down.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "left":
		return DirLeft, true
	case "right":
		return DirRight, true
	case "up":
		return DirUp, true
	case "down":
		return DirDown, true
	}
	return 0, false
}

// WindowInDirection finds the window directional focus would move to from
// w, honouring the focus wrapping option. It returns nil when there is
// nowhere to go.
func (r *Root) WindowInDirection(w *Window, dir Direction) *Window {
	if w == nil || w.pending.Dead {
		return nil
	}
	if w.Floating() {
		return r.floatingInDirection(w, dir)
	}
	c := w.Column()
	ws := w.Workspace()
	if c == nil || ws == nil {
		return nil
	}
	wrap := r.opts.FocusWrapping

	switch dir {
	case DirUp, DirDown:
		if sib := c.childNeighbour(w, dir == DirUp); sib != nil {
			return sib
		}
		if wrap == WrapNo {
			return nil
		}
		children := c.Children()
		if len(children) < 2 {
			return nil
		}
		if dir == DirUp {
			return children[len(children)-1]
		}
		return children[0]

	default:
		if sib := ws.tilingNeighbour(c, dir == DirLeft); sib != nil {
			return sib.ActiveChild()
		}
		if wrap != WrapWorkspace {
			if next := r.acrossOutputs(ws, dir); next != nil {
				return next
			}
		}
		if wrap == WrapNo {
			return nil
		}
		cols := ws.Columns()
		if len(cols) < 2 {
			return nil
		}
		if dir == DirLeft {
			return cols[len(cols)-1].ActiveChild()
		}
		return cols[0].ActiveChild()
	}
}

// acrossOutputs returns the active window of the output adjacent to ws's
// output in dir.
func (r *Root) acrossOutputs(ws *Workspace, dir Direction) *Window {
	out := ws.Output()
	if out == nil {
		return nil
	}
	next := r.OutputInDirection(out, dir)
	if next == nil {
		return nil
	}
	dest := next.ActiveWorkspace()
	if dest == nil {
		return nil
	}
	cols := dest.Columns()
	if len(cols) == 0 {
		return dest.ActiveWindow()
	}
	if dir == DirLeft {
		return cols[len(cols)-1].ActiveChild()
	}
	return cols[0].ActiveChild()
}

// OutputInDirection returns the nearest output beyond out's edge in dir
// that overlaps it on the other axis.
func (r *Root) OutputInDirection(out *Output, dir Direction) *Output {
	from := out.pending.Box
	fx, fy := from.Center()
	var best *Output
	bestDist := math.Inf(1)
	for _, id := range r.pending.Outputs {
		o := r.outputs[id]
		if o == nil || o == out {
			continue
		}
		b := o.pending.Box
		var ok bool
		switch dir {
		case DirLeft:
			ok = b.X+b.Width <= from.X && b.OverlapsVertically(from)
		case DirRight:
			ok = b.X >= from.X+from.Width && b.OverlapsVertically(from)
		case DirUp:
			ok = b.Y+b.Height <= from.Y && b.OverlapsHorizontally(from)
		case DirDown:
			ok = b.Y >= from.Y+from.Height && b.OverlapsHorizontally(from)
		}
		if !ok {
			continue
		}
		cx, cy := b.Center()
		d := (cx-fx)*(cx-fx) + (cy-fy)*(cy-fy)
		if d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// floatingInDirection picks the floating window on the same workspace whose
// centre is closest in dir.
func (r *Root) floatingInDirection(w *Window, dir Direction) *Window {
	ws := w.Workspace()
	if ws == nil {
		return nil
	}
	fx, fy := w.pending.Box.Center()
	var best *Window
	bestDist := math.Inf(1)
	for _, o := range ws.FloatingWindows() {
		if o == w {
			continue
		}
		cx, cy := o.pending.Box.Center()
		var ok bool
		switch dir {
		case DirLeft:
			ok = cx < fx
		case DirRight:
			ok = cx > fx
		case DirUp:
			ok = cy < fy
		case DirDown:
			ok = cy > fy
		}
		if !ok {
			continue
		}
		d := (cx-fx)*(cx-fx) + (cy-fy)*(cy-fy)
		if d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// MoveInDirection moves a tiled window one step in dir. Up and down swap it
// with its neighbour in the column; left and right move it into the
// neighbouring column, or into a new column at the edge of the workspace.
// It reports whether anything moved.
func (r *Root) MoveInDirection(w *Window, dir Direction) bool {
	if w == nil || w.pending.Dead {
		return false
	}
	if w.Floating() {
		return false
	}
	c := w.Column()
	ws := w.Workspace()
	if c == nil || ws == nil {
		return false
	}

	switch dir {
	case DirUp, DirDown:
		i := c.IndexOf(w)
		j := i - 1
		if dir == DirDown {
			j = i + 1
		}
		if j < 0 || j >= len(c.pending.Children) {
			return false
		}
		children := c.pending.Children
		children[i], children[j] = children[j], children[i]
		c.changed()
		return true

	default:
		left := dir == DirLeft
		dest := ws.tilingNeighbour(c, left)
		if dest == nil && c.Len() == 1 {
			return false
		}
		focused := r.pending.FocusedWindow == w.id
		c.RemoveChild(w)
		if dest != nil {
			if target := dest.ActiveChild(); target != nil {
				dest.AddSibling(target, w, true)
			} else {
				dest.AddChild(w)
			}
		} else {
			nc := r.NewColumn()
			ws.AddColumnSibling(c, nc, !left)
			nc.AddChild(w)
		}
		c.DestroyIfEmpty()
		if focused {
			r.SetFocusedWindow(w)
		}
		return true
	}
}

// ColumnIndex returns the position of c among its workspace's columns.
func (ws *Workspace) ColumnIndex(c *Column) int {
	return slices.Index(ws.pending.Tiling, c.id)
}
