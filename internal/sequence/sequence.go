// Package sequence holds the step data played back by the board: points, edges and
// circles for every frame of an incremental construction, plus the JSON wire form
// served by the step service.
package sequence

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptySequence is returned when a sequence without steps is offered for playback.
	ErrEmptySequence = errors.New("sequence is empty")
	// ErrMalformedStep marks a step with a missing or invalid field.
	ErrMalformedStep = errors.New("malformed step")
)

// Point is a coordinate pair in sequence space.
type Point struct {
	X, Y float64
}

// Edge is a line segment between two points.
type Edge struct {
	A, B Point
}

// Circle is a circumscribed-circle annotation.
type Circle struct {
	Center Point
	Radius float64
}

// Step is one frame of the construction. All four fields are required; a nil
// slice means the field was absent and makes the step malformed. Use empty
// slices for "nothing to draw".
type Step struct {
	Points           []Point
	UninsertedPoints []Point
	Edges            []Edge
	Circles          []Circle
}

// Field names as they appear on the wire.
const (
	FieldPoints     = "points"
	FieldUninserted = "uninserted_points"
	FieldEdges      = "edges"
	FieldCircles    = "circles"
)

// StepError describes what is wrong with a step. Index is -1 when the step
// is not part of a sequence.
type StepError struct {
	Index int
	Field string
	Err   error
}

func (e *StepError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed step: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed step %d: field %q: %v", e.Index, e.Field, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedStep) match any StepError.
func (e *StepError) Is(target error) bool { return target == ErrMalformedStep }

var errMissing = errors.New("missing")

// Validate reports the first missing or invalid field.
func (s Step) Validate() error {
	switch {
	case s.Points == nil:
		return &StepError{Index: -1, Field: FieldPoints, Err: errMissing}
	case s.UninsertedPoints == nil:
		return &StepError{Index: -1, Field: FieldUninserted, Err: errMissing}
	case s.Edges == nil:
		return &StepError{Index: -1, Field: FieldEdges, Err: errMissing}
	case s.Circles == nil:
		return &StepError{Index: -1, Field: FieldCircles, Err: errMissing}
	}
	for i, c := range s.Circles {
		if c.Radius < 0 || math.IsNaN(c.Radius) {
			return &StepError{Index: -1, Field: FieldCircles, Err: fmt.Errorf("circle %d has invalid radius %v", i, c.Radius)}
		}
	}
	return nil
}

// Sequence is the ordered list of steps for one playback session. It is treated
// as immutable once received.
type Sequence []Step

// Validate rejects empty sequences and returns the first malformed step.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmptySequence
	}
	for i, st := range s {
		if err := st.Validate(); err != nil {
			return atIndex(err, i)
		}
	}
	return nil
}

func atIndex(err error, i int) error {
	var se *StepError
	if errors.As(err, &se) {
		cp := *se
		cp.Index = i
		return &cp
	}
	return err
}

// Box is an axis-aligned bounding box.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b Box) Width() float64  { return b.MaxX - b.MinX }
func (b Box) Height() float64 { return b.MaxY - b.MinY }

func (b *Box) add(p Point) {
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
}

// Bounds is the union bounding box of every committed point and edge endpoint
// across all steps. Uninserted points and circles do not contribute. ok is false
// when the sequence references no such point.
func (s Sequence) Bounds() (box Box, ok bool) {
	box = Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, st := range s {
		for _, p := range st.Points {
			box.add(p)
			ok = true
		}
		for _, e := range st.Edges {
			box.add(e.A)
			box.add(e.B)
			ok = true
		}
	}
	return box, ok
}

// LooseBounds covers uninserted points and circle centres. Fit falls back to it
// when nothing has been committed yet.
func (s Sequence) LooseBounds() (box Box, ok bool) {
	box = Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, st := range s {
		for _, p := range st.UninsertedPoints {
			box.add(p)
			ok = true
		}
		for _, c := range st.Circles {
			box.add(c.Center)
			ok = true
		}
	}
	return box, ok
}
