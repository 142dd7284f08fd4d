package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Clock is a Lamport counter tagged with the site that owns it.
type Clock struct {
	site    string
	counter atomic.Uint64
}

func NewClock() *Clock {
	return &Clock{site: uuid.NewString()}
}

func (c *Clock) Site() string { return c.site }

// Tick advances the clock for a local event.
func (c *Clock) Tick() uint64 {
	return c.counter.Add(1)
}
