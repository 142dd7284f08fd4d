// Package view computes the fixed mapping from sequence space onto the canvas.
package view

import (
	"fmt"
	"math"

	"StepBoard/internal/sequence"
)

// Transform maps sequence space to canvas pixels: screen = point*Scale + offset.
// One Transform is computed per playback session and never changes after that.
type Transform struct {
	Scale   float64 `json:"scale" yaml:"scale"`
	OffsetX float64 `json:"offset_x" yaml:"offset_x"`
	OffsetY float64 `json:"offset_y" yaml:"offset_y"`
}

// Identity maps sequence space 1:1 onto the canvas.
var Identity = Transform{Scale: 1}

// Apply maps a point to canvas coordinates.
func (t Transform) Apply(p sequence.Point) (x, y float64) {
	return p.X*t.Scale + t.OffsetX, p.Y*t.Scale + t.OffsetY
}

// Length scales a distance such as a circle radius.
func (t Transform) Length(d float64) float64 {
	return d * t.Scale
}

// Invert maps canvas coordinates back to sequence space.
func (t Transform) Invert(x, y float64) sequence.Point {
	if t.Scale == 0 {
		return sequence.Point{X: x, Y: y}
	}
	return sequence.Point{X: (x - t.OffsetX) / t.Scale, Y: (y - t.OffsetY) / t.Scale}
}

// Options tune the fit.
type Options struct {
	// Padding is added on every side of the bounding box, in sequence units.
	Padding float64 `yaml:"padding"`
	// Margin shrinks the final scale to leave a visual border (0.95 keeps 5%).
	Margin float64 `yaml:"margin"`
	// MinExtent floors the box width and height so coincident points do not
	// divide by zero.
	MinExtent float64 `yaml:"min_extent"`
}

// DefaultOptions leave a 20 unit pad and use 95% of the canvas.
func DefaultOptions() Options {
	return Options{Padding: 20, Margin: 0.95, MinExtent: 1}
}

// Fit returns the transform that centers every committed point and edge of seq on a
// width x height canvas with a uniform scale. A sequence with nothing committed is
// fitted to its uninserted points and circle centres, or to a MinExtent box at the
// origin when it has none of those either.
func Fit(seq sequence.Sequence, width, height float64, opts Options) (Transform, error) {
	if len(seq) == 0 {
		return Transform{}, sequence.ErrEmptySequence
	}
	if width <= 0 || height <= 0 {
		return Transform{}, fmt.Errorf("invalid canvas size %vx%v", width, height)
	}
	box, ok := seq.Bounds()
	if !ok {
		box, ok = seq.LooseBounds()
	}
	if !ok {
		box = sequence.Box{}
	}
	if opts.Margin <= 0 {
		opts.Margin = 1
	}
	minExtent := math.Max(opts.MinExtent, math.SmallestNonzeroFloat64)

	// Floor each extent around its center before padding.
	if w := box.Width(); w < minExtent {
		cx := box.MinX + w/2
		box.MinX, box.MaxX = cx-minExtent/2, cx+minExtent/2
	}
	if h := box.Height(); h < minExtent {
		cy := box.MinY + h/2
		box.MinY, box.MaxY = cy-minExtent/2, cy+minExtent/2
	}

	minX := box.MinX - opts.Padding
	minY := box.MinY - opts.Padding
	paddedW := box.Width() + 2*opts.Padding
	paddedH := box.Height() + 2*opts.Padding

	scaleX := width / paddedW
	scaleY := height / paddedH
	scale := math.Min(scaleX, scaleY) * opts.Margin

	return Transform{
		Scale:   scale,
		OffsetX: (width-paddedW*scale)/2 - minX*scale,
		OffsetY: (height-paddedH*scale)/2 - minY*scale,
	}, nil
}
