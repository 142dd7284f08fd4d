package ui

import (
	"image/color"
	"math"
	"sync"

	"StepBoard/internal/render"
	"StepBoard/internal/sequence"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// maxDashes caps how many segments one dashed circle is split into.
const maxDashes = 720

// Board shows playback frames. Frames are laid out for a logical canvas
// size and scaled uniformly into whatever space the widget gets. Before a
// session starts it shows the captured input points instead.
type Board struct {
	widget.BaseWidget

	mu      sync.RWMutex
	logical render.Size
	frame   *render.Frame
	points  []sequence.Point

	// OnTap receives taps in logical canvas coordinates.
	OnTap func(x, y float64)
}

var _ fyne.Tappable = (*Board)(nil)
var _ render.Surface = (*Board)(nil)

func NewBoard(logical render.Size) *Board {
	b := &Board{logical: logical}
	b.ExtendBaseWidget(b)
	return b
}

// Draw and Clear may be called from any goroutine.
func (b *Board) Draw(f render.Frame) {
	b.mu.Lock()
	b.frame = &f
	if f.Size.Width > 0 && f.Size.Height > 0 {
		b.logical = f.Size
	}
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

func (b *Board) Clear() {
	b.mu.Lock()
	b.frame = nil
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

// SetPoints replaces the captured points shown while no frame is on screen.
func (b *Board) SetPoints(pts []sequence.Point) {
	b.mu.Lock()
	b.points = append([]sequence.Point(nil), pts...)
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

func (b *Board) Tapped(e *fyne.PointEvent) {
	if b.OnTap == nil {
		return
	}
	b.mu.RLock()
	d := fitDisplay(b.logical, b.Size())
	b.mu.RUnlock()
	x, y := d.toLogical(e.Position)
	b.OnTap(x, y)
}

func (b *Board) MinSize() fyne.Size {
	return fyne.NewSize(300, 225)
}

func (b *Board) CreateRenderer() fyne.WidgetRenderer {
	r := &boardRenderer{board: b, background: canvas.NewRectangle(color.NRGBA{R: 245, G: 246, B: 248, A: 255})}
	r.rebuild(b.Size())
	return r
}

// display maps the logical canvas into widget space.
type display struct {
	scale  float32
	offset fyne.Position
}

func fitDisplay(logical render.Size, size fyne.Size) display {
	if logical.Width <= 0 || logical.Height <= 0 || size.Width <= 0 || size.Height <= 0 {
		return display{scale: 1}
	}
	k := float32(math.Min(float64(size.Width)/logical.Width, float64(size.Height)/logical.Height))
	return display{
		scale: k,
		offset: fyne.NewPos(
			(size.Width-float32(logical.Width)*k)/2,
			(size.Height-float32(logical.Height)*k)/2,
		),
	}
}

func (d display) pos(x, y float64) fyne.Position {
	return fyne.NewPos(float32(x)*d.scale+d.offset.X, float32(y)*d.scale+d.offset.Y)
}

func (d display) toLogical(p fyne.Position) (float64, float64) {
	return float64((p.X - d.offset.X) / d.scale), float64((p.Y - d.offset.Y) / d.scale)
}

type boardRenderer struct {
	board      *Board
	background *canvas.Rectangle
	paper      *canvas.Rectangle
	objects    []fyne.CanvasObject
}

func (r *boardRenderer) Layout(size fyne.Size) {
	r.rebuild(size)
}

func (r *boardRenderer) MinSize() fyne.Size {
	return r.board.MinSize()
}

func (r *boardRenderer) Refresh() {
	r.rebuild(r.board.Size())
	canvas.Refresh(r.board)
}

func (r *boardRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *boardRenderer) Destroy() {}

func (r *boardRenderer) rebuild(size fyne.Size) {
	b := r.board
	b.mu.RLock()
	logical, frame, points := b.logical, b.frame, b.points
	b.mu.RUnlock()
	d := fitDisplay(logical, size)

	r.background.Resize(size)
	if r.paper == nil {
		r.paper = canvas.NewRectangle(color.White)
	}
	r.paper.Move(d.offset)
	r.paper.Resize(fyne.NewSize(float32(logical.Width)*d.scale, float32(logical.Height)*d.scale))
	objects := []fyne.CanvasObject{r.background, r.paper}

	if frame == nil {
		for _, p := range points {
			objects = append(objects, marker(d, p.X, p.Y, render.MarkerRadius, render.CommittedColor))
		}
		r.objects = objects
		return
	}

	for _, op := range frame.Ops {
		switch op.Kind {
		case render.OpMarker:
			objects = append(objects, marker(d, op.X, op.Y, op.Radius, op.Color))
		case render.OpLine:
			line := canvas.NewLine(op.Color)
			line.StrokeWidth = float32(op.Width)
			line.Position1 = d.pos(op.X, op.Y)
			line.Position2 = d.pos(op.X2, op.Y2)
			objects = append(objects, line)
		case render.OpCircle:
			objects = append(objects, dashedCircle(d, op)...)
		}
	}
	r.objects = objects
}

// marker is a filled disc; its radius stays in screen pixels.
func marker(d display, x, y, radius float64, c color.Color) fyne.CanvasObject {
	dot := canvas.NewCircle(c)
	center := d.pos(x, y)
	rr := float32(radius)
	dot.Move(fyne.NewPos(center.X-rr, center.Y-rr))
	dot.Resize(fyne.NewSize(2*rr, 2*rr))
	return dot
}

// dashedCircle approximates a dashed outline with short chords, since fyne has
// no dashed strokes.
func dashedCircle(d display, op render.Op) []fyne.CanvasObject {
	center := d.pos(op.X, op.Y)
	radius := op.Radius * float64(d.scale)
	segs := dashSegments(float64(center.X), float64(center.Y), radius, op.Dash)
	if segs == nil {
		ring := canvas.NewCircle(color.Transparent)
		ring.StrokeColor = op.Color
		ring.StrokeWidth = float32(op.Width)
		rr := float32(radius)
		ring.Move(fyne.NewPos(center.X-rr, center.Y-rr))
		ring.Resize(fyne.NewSize(2*rr, 2*rr))
		return []fyne.CanvasObject{ring}
	}
	out := make([]fyne.CanvasObject, 0, len(segs))
	for _, s := range segs {
		line := canvas.NewLine(op.Color)
		line.StrokeWidth = float32(op.Width)
		line.Position1 = fyne.NewPos(float32(s[0]), float32(s[1]))
		line.Position2 = fyne.NewPos(float32(s[2]), float32(s[3]))
		out = append(out, line)
	}
	return out
}

// dashSegments splits the circle into on/off runs following the first two
// entries of dash. It returns nil when the pattern does not fit, in which case
// the circle is drawn solid.
func dashSegments(cx, cy, r float64, dash []float64) [][4]float64 {
	if len(dash) < 2 || r <= 0 || dash[0] <= 0 || dash[1] < 0 {
		return nil
	}
	period := dash[0] + dash[1]
	n := int(2 * math.Pi * r / period)
	if n < 2 {
		return nil
	}
	if n > maxDashes {
		n = maxDashes
	}
	step := 2 * math.Pi / float64(n)
	on := step * dash[0] / period
	segs := make([][4]float64, n)
	for i := range segs {
		a0 := float64(i) * step
		a1 := a0 + on
		segs[i] = [4]float64{cx + r*math.Cos(a0), cy + r*math.Sin(a0), cx + r*math.Cos(a1), cy + r*math.Sin(a1)}
	}
	return segs
}
