package service

import (
	"context"
	"fmt"
	"math"
	"os"

	"StepBoard/internal/sequence"
)

// Builder turns the captured points into a step sequence.
type Builder interface {
	Build(ctx context.Context, points []sequence.Point) (sequence.Sequence, error)
}

// FileBuilder serves a precomputed sequence, read fresh on every request so the
// file can be regenerated while the service runs. The points are ignored.
type FileBuilder struct {
	Path string
}

func (b FileBuilder) Build(_ context.Context, _ []sequence.Point) (sequence.Sequence, error) {
	f, err := os.Open(b.Path)
	if err != nil {
		return nil, fmt.Errorf("open sequence file: %w", err)
	}
	defer f.Close()
	seq, err := sequence.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("sequence file %s: %w", b.Path, err)
	}
	return seq, nil
}

// PolylineBuilder is a demo construction: it inserts the points one by one, joins
// each to the previous, and marks the newest point with a circle reaching back to
// its predecessor.
type PolylineBuilder struct{}

func (PolylineBuilder) Build(ctx context.Context, points []sequence.Point) (sequence.Sequence, error) {
	if len(points) == 0 {
		return nil, sequence.ErrEmptySequence
	}
	seq := make(sequence.Sequence, 0, len(points))
	for k := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st := sequence.Step{
			Points:           append([]sequence.Point{}, points[:k+1]...),
			UninsertedPoints: append([]sequence.Point{}, points[k+1:]...),
			Edges:            make([]sequence.Edge, 0, k),
			Circles:          []sequence.Circle{},
		}
		for i := 1; i <= k; i++ {
			st.Edges = append(st.Edges, sequence.Edge{A: points[i-1], B: points[i]})
		}
		if k > 0 {
			cur, prev := points[k], points[k-1]
			st.Circles = append(st.Circles, sequence.Circle{
				Center: cur,
				Radius: math.Hypot(cur.X-prev.X, cur.Y-prev.Y),
			})
		}
		seq = append(seq, st)
	}
	return seq, nil
}
