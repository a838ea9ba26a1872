// pattern: Functional Core

package layout

import "math"

// Axis selects the direction a box is divided along.
type Axis int

const (
	// Horizontal lays children out left to right.
	Horizontal Axis = iota
	// Vertical lays children out top to bottom.
	Vertical
)

// Preview describes an insertion indicator carved out of a split before the
// siblings share what is left.
type Preview struct {
	// Index is the slot the preview occupies: 0 places it before the first
	// child, len(fractions) after the last.
	Index int
	// Fraction of the available length given to the preview, in [0, 1).
	Fraction float64
}

// Normalize returns fractions rescaled to sum to 1. Entries that are not
// positive (new children) receive the mean of the positive entries first, or
// an equal share when no entry is positive.
func Normalize(fractions []float64) []float64 {
	out := make([]float64, len(fractions))
	if len(fractions) == 0 {
		return out
	}

	var sum float64
	var count int
	for _, f := range fractions {
		if f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
			sum += f
			count++
		}
	}
	mean := 1.0
	if count > 0 {
		mean = sum / float64(count)
	}

	var total float64
	for i, f := range fractions {
		if f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
			out[i] = f
		} else {
			out[i] = mean
		}
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// Split divides box along axis proportionally to fractions, separating
// children with gap. Edges are rounded from cumulative offsets so the
// children tile the box exactly and repeated runs give identical results.
func Split(box Box, axis Axis, fractions []float64, gap float64) []Box {
	boxes, _ := SplitWithPreview(box, axis, fractions, gap, nil)
	return boxes
}

// SplitWithPreview is Split with an optional preview slot. The preview's
// share is removed from the available length before the siblings'
// fractions are normalised. The returned preview box is empty when preview
// is nil.
func SplitWithPreview(box Box, axis Axis, fractions []float64, gap float64, preview *Preview) ([]Box, Box) {
	n := len(fractions)
	norm := Normalize(fractions)

	slots := n
	if preview != nil {
		slots++
	}
	gap = math.Max(0, gap)

	origin, length := box.X, box.Width
	if axis == Vertical {
		origin, length = box.Y, box.Height
	}
	avail := math.Max(0, length-gap*float64(max(slots-1, 0)))

	previewLen := 0.0
	previewIndex := -1
	if preview != nil {
		f := Clamp(preview.Fraction, 0, 0.99)
		previewLen = math.Round(avail * f)
		previewIndex = min(max(preview.Index, 0), n)
	}
	childAvail := avail - previewLen

	boxes := make([]Box, 0, n)
	var previewBox Box
	pos := origin
	cum := 0.0
	childStart := 0.0
	for slot, child := 0, 0; slot < slots; slot++ {
		var size float64
		isPreview := slot == previewIndex && preview != nil
		if isPreview {
			size = previewLen
		} else {
			cum += norm[child]
			end := math.Round(childAvail * cum)
			if child == n-1 {
				end = math.Round(childAvail)
			}
			size = end - childStart
			childStart = end
			child++
		}

		b := box
		if axis == Horizontal {
			b.X, b.Width = pos, size
		} else {
			b.Y, b.Height = pos, size
		}
		if isPreview {
			previewBox = b
		} else {
			boxes = append(boxes, b)
		}
		pos += size + gap
	}
	return boxes, previewBox
}
