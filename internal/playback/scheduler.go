package playback

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Implementations must call f on another goroutine,
// never from inside AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// WallClock schedules with time.AfterFunc.
type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

const (
	// MinPoints is how many captured points are needed before a sequence can be requested.
	MinPoints = 3

	DefaultDelay    = 1000 * time.Millisecond
	DefaultMinDelay = 10 * time.Millisecond
	// DefaultMaxDelay is the top of the inverted speed scale: delay = max - control.
	DefaultMaxDelay = 2010 * time.Millisecond
)

// DelayForSpeed inverts a speed control value (in milliseconds) into a tick delay,
// so a higher control value plays faster. The result never drops below minDelay.
func DelayForSpeed(control float64, maxDelay, minDelay time.Duration) time.Duration {
	d := maxDelay - time.Duration(control*float64(time.Millisecond))
	if d < minDelay {
		d = minDelay
	}
	return d
}
