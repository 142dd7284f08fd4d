// Package render turns a step into a display list in canvas pixels. Backends (the
// fyne board, the PDF exporter, websocket spectators) only replay the list.
package render

import (
	"fmt"
	"image/color"
	"math"

	"StepBoard/internal/sequence"
	"StepBoard/internal/view"

	"github.com/lucasb-eyer/go-colorful"
)

// OpKind identifies a drawing primitive.
type OpKind int

const (
	OpClear OpKind = iota
	OpMarker
	OpLine
	OpCircle
)

func (k OpKind) String() string {
	switch k {
	case OpClear:
		return "clear"
	case OpMarker:
		return "marker"
	case OpLine:
		return "line"
	case OpCircle:
		return "circle"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Op is one drawing command. Coordinates are canvas pixels.
//
//	OpClear:  rectangle (X, Y)-(X2, Y2)
//	OpMarker: filled disc at (X, Y) with Radius
//	OpLine:   segment (X, Y)-(X2, Y2) with Width
//	OpCircle: outline at (X, Y) with Radius, Width and Dash
type Op struct {
	Kind   OpKind      `json:"kind"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	X2     float64     `json:"x2,omitempty"`
	Y2     float64     `json:"y2,omitempty"`
	Radius float64     `json:"r,omitempty"`
	Width  float64     `json:"w,omitempty"`
	Color  color.NRGBA `json:"color"`
	Dash   []float64   `json:"dash,omitempty"`
}

// Size is the logical canvas size in pixels.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Frame is the display list for one step.
type Frame struct {
	Index int      `json:"index"`
	Size  Size     `json:"size"`
	Ops   []Op     `json:"ops"`
	Notes []string `json:"notes,omitempty"`
}

const (
	MarkerRadius = 5
	EdgeWidth    = 2
	CircleWidth  = 1
	// ClearMargin extends the cleared area past the canvas, since fitted content
	// can land slightly outside [0,width]x[0,height].
	ClearMargin = 10000
)

var (
	CommittedColor  = color.NRGBA{R: 255, A: 255}
	UninsertedColor = color.NRGBA{B: 255, A: 255}
	EdgeColor       = color.NRGBA{B: 255, A: 255}
	CircleDash      = []float64{5, 3}
)

// CircleColor is the hue used for circles of step index: index*60+180 degrees.
func CircleColor(index int) color.NRGBA {
	hue := math.Mod(float64(index)*60+180, 360)
	r, g, b := colorful.Hsl(hue, 1, 0.5).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Render builds the frame for step number index. It does not touch t; the same
// transform is expected for every step of a session.
func Render(step sequence.Step, index int, t view.Transform, size Size) (Frame, error) {
	if err := step.Validate(); err != nil {
		return Frame{}, fmt.Errorf("render step %d: %w", index, err)
	}

	n := 1 + len(step.UninsertedPoints) + len(step.Points) + len(step.Edges) + len(step.Circles)
	f := Frame{
		Index: index,
		Size:  size,
		Ops:   make([]Op, 0, n),
	}
	f.Ops = append(f.Ops, Op{
		Kind: OpClear,
		X:    -ClearMargin,
		Y:    -ClearMargin,
		X2:   size.Width + ClearMargin,
		Y2:   size.Height + ClearMargin,
	})

	for i, p := range step.UninsertedPoints {
		x, y := t.Apply(p)
		f.Ops = append(f.Ops, Op{Kind: OpMarker, X: x, Y: y, Radius: MarkerRadius, Color: UninsertedColor})
		f.Notes = append(f.Notes, fmt.Sprintf("Uninserted %d: (%g, %g)", i, p.X, p.Y))
	}
	for i, p := range step.Points {
		x, y := t.Apply(p)
		f.Ops = append(f.Ops, Op{Kind: OpMarker, X: x, Y: y, Radius: MarkerRadius, Color: CommittedColor})
		f.Notes = append(f.Notes, fmt.Sprintf("Point %d: (%g, %g)", i, p.X, p.Y))
	}
	for _, e := range step.Edges {
		x1, y1 := t.Apply(e.A)
		x2, y2 := t.Apply(e.B)
		f.Ops = append(f.Ops, Op{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2, Width: EdgeWidth, Color: EdgeColor})
	}
	cc := CircleColor(index)
	for _, c := range step.Circles {
		x, y := t.Apply(c.Center)
		f.Ops = append(f.Ops, Op{
			Kind:   OpCircle,
			X:      x,
			Y:      y,
			Radius: t.Length(c.Radius),
			Width:  CircleWidth,
			Color:  cc,
			Dash:   CircleDash,
		})
		f.Notes = append(f.Notes, fmt.Sprintf("Circle: center (%g, %g), radius %g", c.Center.X, c.Center.Y, c.Radius))
	}
	return f, nil
}
