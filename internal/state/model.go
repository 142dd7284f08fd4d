package state

import (
	"time"

	"StepBoard/internal/sequence"
)

// Point is one captured input point. ID and Lamport are assigned by the store
// that first saw it.
type Point struct {
	ID      string    `json:"id"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Lamport uint64    `json:"lamport"`
	Site    string    `json:"site"`
	AddedAt time.Time `json:"added_at"`
}

func (p Point) Coord() sequence.Point {
	return sequence.Point{X: p.X, Y: p.Y}
}

type OpType string

const (
	OpAddPoint    OpType = "add_point"
	OpClearPoints OpType = "clear_points"
)

// Op records a change to a PointSet, handed to its OnOp hook.
type Op struct {
	Type    OpType
	Point   *Point
	Lamport uint64
	Site    string
}
