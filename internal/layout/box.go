// pattern: Functional Core

// Package layout holds the pure geometry used by the arrange pass: boxes,
// fraction normalisation, split distribution and border insets.
package layout

import "math"

// Box is a rectangle in layout coordinates.
type Box struct {
	X, Y          float64
	Width, Height float64
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Center returns the centre point of the box.
func (b Box) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains reports whether the point lies inside the box.
// The right and bottom edges are exclusive.
func (b Box) Contains(x, y float64) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// ClosestPoint returns the point inside the box nearest to (x, y).
func (b Box) ClosestPoint(x, y float64) (float64, float64) {
	cx := math.Max(b.X, math.Min(x, b.X+b.Width-1))
	cy := math.Max(b.Y, math.Min(y, b.Y+b.Height-1))
	if b.Width <= 0 {
		cx = b.X
	}
	if b.Height <= 0 {
		cy = b.Y
	}
	return cx, cy
}

// DistanceSquared returns the squared distance from (x, y) to the box.
// Points inside the box are at distance zero.
func (b Box) DistanceSquared(x, y float64) float64 {
	cx, cy := b.ClosestPoint(x, y)
	dx, dy := x-cx, y-cy
	return dx*dx + dy*dy
}

// OverlapsVertically reports whether the two boxes share any Y range.
func (b Box) OverlapsVertically(o Box) bool {
	return b.Y < o.Y+o.Height && o.Y < b.Y+b.Height
}

// OverlapsHorizontally reports whether the two boxes share any X range.
func (b Box) OverlapsHorizontally(o Box) bool {
	return b.X < o.X+o.Width && o.X < b.X+b.Width
}

// Union returns the smallest box containing both boxes. An empty box is
// ignored.
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	x1 := math.Min(b.X, o.X)
	y1 := math.Min(b.Y, o.Y)
	x2 := math.Max(b.X+b.Width, o.X+o.Width)
	y2 := math.Max(b.Y+b.Height, o.Y+o.Height)
	return Box{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Inset shrinks the box by the given edge amounts. Negative amounts are
// treated as zero and the result never has a negative width or height.
func Inset(b Box, left, right, top, bottom float64) Box {
	left = math.Max(0, left)
	right = math.Max(0, right)
	top = math.Max(0, top)
	bottom = math.Max(0, bottom)

	out := Box{
		X:      b.X + left,
		Y:      b.Y + top,
		Width:  b.Width - left - right,
		Height: b.Height - top - bottom,
	}
	if out.Width < 0 {
		out.X = b.X + math.Min(left, b.Width)
		out.Width = 0
	}
	if out.Height < 0 {
		out.Y = b.Y + math.Min(top, b.Height)
		out.Height = 0
	}
	return out
}

// Shrink insets every edge of the box by n.
func Shrink(b Box, n float64) Box {
	return Inset(b, n, n, n, n)
}

// Clamp limits v to [lo, hi]. If hi < lo, lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
