package state

import (
	"log"
	"sort"
	"sync"
	"time"

	"StepBoard/internal/sequence"

	"github.com/google/uuid"
)

// PointSet is the set of captured input points. Points are unique by coordinate
// and come back in insertion order.
type PointSet struct {
	clock  *Clock
	points map[string]Point         // by ID
	coords map[sequence.Point]string // coordinate -> ID
	mu     sync.RWMutex

	// OnOp, if set, is called after every change with the lock released.
	OnOp func(Op)
}

func NewPointSet() *PointSet {
	return &PointSet{
		clock:  NewClock(),
		points: make(map[string]Point),
		coords: make(map[sequence.Point]string),
	}
}

// Add stores a point captured locally. It returns the stored point and true, or
// the existing point and false when the coordinate is already present.
func (ps *PointSet) Add(x, y float64) (Point, bool) {
	ps.mu.Lock()
	key := sequence.Point{X: x, Y: y}
	if id, ok := ps.coords[key]; ok {
		p := ps.points[id]
		ps.mu.Unlock()
		log.Printf("[STATE] Duplicate point (%g, %g) ignored", x, y)
		return p, false
	}
	p := Point{
		ID:      uuid.NewString(),
		X:       x,
		Y:       y,
		Lamport: ps.clock.Tick(),
		Site:    ps.clock.Site(),
		AddedAt: time.Now(),
	}
	ps.points[p.ID] = p
	ps.coords[key] = p.ID
	ps.mu.Unlock()

	ps.emit(Op{Type: OpAddPoint, Point: &p, Lamport: p.Lamport, Site: p.Site})
	return p, true
}

// Points returns every point ordered by Lamport time, ties broken by site.
func (ps *PointSet) Points() []Point {
	ps.mu.RLock()
	out := make([]Point, 0, len(ps.points))
	for _, p := range ps.points {
		out = append(out, p)
	}
	ps.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Lamport != out[j].Lamport {
			return out[i].Lamport < out[j].Lamport
		}
		return out[i].Site < out[j].Site
	})
	return out
}

// Coords is Points reduced to plain coordinates.
func (ps *PointSet) Coords() []sequence.Point {
	pts := ps.Points()
	out := make([]sequence.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Coord()
	}
	return out
}

func (ps *PointSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.points)
}

// Clear drops every point. The clock keeps running so later points still sort
// after anything a peer may have seen.
func (ps *PointSet) Clear() {
	ps.mu.Lock()
	n := len(ps.points)
	ps.points = make(map[string]Point)
	ps.coords = make(map[sequence.Point]string)
	ts := ps.clock.Tick()
	ps.mu.Unlock()

	log.Printf("[STATE] Cleared %d points", n)
	ps.emit(Op{Type: OpClearPoints, Lamport: ts, Site: ps.clock.Site()})
}

func (ps *PointSet) emit(op Op) {
	if ps.OnOp != nil {
		ps.OnOp(op)
	}
}
