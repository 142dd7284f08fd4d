package state

import (
	"testing"

	"StepBoard/internal/sequence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIgnoresDuplicates(t *testing.T) {
	ps := NewPointSet()
	first, ok := ps.Add(1, 2)
	require.True(t, ok)

	again, ok := ps.Add(1, 2)
	assert.False(t, ok)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, ps.Len())
}

func TestPointsKeepInsertionOrder(t *testing.T) {
	ps := NewPointSet()
	ps.Add(5, 5)
	ps.Add(0, 0)
	ps.Add(3, 1)

	assert.Equal(t, []sequence.Point{{X: 5, Y: 5}, {X: 0, Y: 0}, {X: 3, Y: 1}}, ps.Coords())
}

func TestClear(t *testing.T) {
	ps := NewPointSet()
	var ops []OpType
	ps.OnOp = func(op Op) { ops = append(ops, op.Type) }

	ps.Add(1, 1)
	ps.Clear()
	assert.Equal(t, 0, ps.Len())

	// A cleared coordinate can be added again.
	_, ok := ps.Add(1, 1)
	assert.True(t, ok)
	assert.Equal(t, []OpType{OpAddPoint, OpClearPoints, OpAddPoint}, ops)
}

func TestClockTicksPerSite(t *testing.T) {
	a, b := NewClock(), NewClock()
	assert.Equal(t, uint64(1), a.Tick())
	assert.Equal(t, uint64(2), a.Tick())
	assert.Equal(t, uint64(1), b.Tick())
	assert.NotEqual(t, a.Site(), b.Site())
}
