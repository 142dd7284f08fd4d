package playback

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"StepBoard/internal/render"
	"StepBoard/internal/sequence"
	"StepBoard/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a Scheduler driven by Advance. A leaky clock fires callbacks even
// after Stop, imitating a timer that had already expired when it was cancelled.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	timers  []*fakeTimer
	created int
	leaky   bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	c.created++
	return t
}

// Advance moves time forward, running due callbacks in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.fired && (!t.stopped || c.leaky) && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// Pending counts live timers.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (c *fakeClock) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

func step(pts ...sequence.Point) sequence.Step {
	return sequence.Step{
		Points:           pts,
		UninsertedPoints: []sequence.Point{},
		Edges:            []sequence.Edge{},
		Circles:          []sequence.Circle{},
	}
}

func threeSteps() sequence.Sequence {
	a, b, c := sequence.Point{X: 0, Y: 0}, sequence.Point{X: 10, Y: 0}, sequence.Point{X: 5, Y: 8}
	return sequence.Sequence{step(a), step(a, b), step(a, b, c)}
}

type harness struct {
	ctl     *Controller
	clock   *fakeClock
	surface *render.Recorder
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	clock := &fakeClock{}
	if opts.Scheduler == nil {
		opts.Scheduler = clock
	}
	if opts.Delay == 0 {
		opts.Delay = 500 * time.Millisecond
	}
	rec := render.NewRecorder()
	return &harness{ctl: NewController(rec, opts), clock: clock, surface: rec}
}

func TestAutomaticPlayback(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctl.Start(threeSteps()))

	// Step 0 is drawn synchronously.
	assert.Equal(t, []int{0}, h.surface.Indices())
	assert.Equal(t, Running, h.ctl.Snapshot().Status)
	assert.Equal(t, 1, h.clock.Pending())

	h.clock.Advance(499 * time.Millisecond)
	assert.Equal(t, []int{0}, h.surface.Indices())

	h.clock.Advance(1 * time.Millisecond)
	assert.Equal(t, []int{0, 1}, h.surface.Indices())

	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, []int{0, 1, 2}, h.surface.Indices())

	s := h.ctl.Snapshot()
	assert.Equal(t, Finished, s.Status)
	assert.Equal(t, 3, s.Index)
	assert.Equal(t, 0, h.clock.Pending())
	assert.Equal(t, "Drawing complete!", Controls(s).StatusText)

	h.clock.Advance(10 * time.Second)
	assert.Len(t, h.surface.Frames(), 3)
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctl.Start(threeSteps()))

	h.clock.Advance(500 * time.Millisecond)
	h.clock.Advance(100 * time.Millisecond)
	assert.True(t, h.ctl.Pause())

	s := h.ctl.Snapshot()
	assert.Equal(t, Paused, s.Status)
	assert.Equal(t, 2, s.Index)
	assert.Equal(t, 0, h.clock.Pending())
	assert.Equal(t, "Resume", Controls(s).PauseLabel)

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, []int{0, 1}, h.surface.Indices())

	// Pausing twice changes nothing.
	assert.False(t, h.ctl.Pause())

	require.NoError(t, h.ctl.Resume())
	assert.Equal(t, []int{0, 1, 2}, h.surface.Indices())
	assert.Equal(t, Finished, h.ctl.Snapshot().Status)
}

func TestTogglePause(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctl.Start(threeSteps()))

	require.NoError(t, h.ctl.TogglePause())
	assert.Equal(t, Paused, h.ctl.Snapshot().Status)

	require.NoError(t, h.ctl.TogglePause())
	assert.Equal(t, Running, h.ctl.Snapshot().Status)
	assert.Equal(t, []int{0, 1}, h.surface.Indices())
}

func TestSpeedChangeAppliesToNextTick(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctl.Start(threeSteps()))

	h.ctl.SetDelay(100 * time.Millisecond)
	h.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, []int{0}, h.surface.Indices(), "pending tick keeps its deadline")

	h.clock.Advance(400 * time.Millisecond)
	assert.Equal(t, []int{0, 1}, h.surface.Indices())

	h.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, []int{0, 1, 2}, h.surface.Indices())
}

func TestSetSpeed(t *testing.T) {
	h := newHarness(t, Options{})
	h.ctl.SetSpeed(1010)
	assert.Equal(t, 1000*time.Millisecond, h.ctl.Snapshot().Delay)

	h.ctl.SetSpeed(5000)
	assert.Equal(t, DefaultMinDelay, h.ctl.Snapshot().Delay)

	h.ctl.SetDelay(-time.Second)
	assert.Equal(t, DefaultMinDelay, h.ctl.Snapshot().Delay)
}

func TestDelayForSpeed(t *testing.T) {
	assert.Equal(t, 2000*time.Millisecond, DelayForSpeed(10, DefaultMaxDelay, DefaultMinDelay))
	assert.Equal(t, 10*time.Millisecond, DelayForSpeed(2000, DefaultMaxDelay, DefaultMinDelay))
	assert.Equal(t, 10*time.Millisecond, DelayForSpeed(2010, DefaultMaxDelay, DefaultMinDelay))
	assert.Equal(t, 3*time.Millisecond, DelayForSpeed(2010, DefaultMaxDelay, 3*time.Millisecond))
}

func TestManualStepping(t *testing.T) {
	h := newHarness(t, Options{Mode: Manual})
	require.NoError(t, h.ctl.Start(threeSteps()))

	s := h.ctl.Snapshot()
	assert.Equal(t, Waiting, s.Status)
	assert.Empty(t, h.surface.Frames())
	assert.Equal(t, "Next", Controls(s).RunLabel)
	assert.True(t, Controls(s).RunEnabled)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.ctl.Next())
	}
	assert.Equal(t, []int{0, 1, 2}, h.surface.Indices())
	assert.Equal(t, Finished, h.ctl.Snapshot().Status)
	assert.Equal(t, 0, h.clock.Created())

	require.NoError(t, h.ctl.Next())
	assert.Len(t, h.surface.Frames(), 3)

	h.clock.Advance(time.Minute)
	assert.Len(t, h.surface.Frames(), 3)
}

func TestNextIgnoredInAutomatic(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctl.Start(threeSteps()))
	require.NoError(t, h.ctl.Next())
	assert.Equal(t, []int{0}, h.surface.Indices())
}

func TestModeSwitchPreservesProgress(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctl.Start(threeSteps()))

	h.ctl.SetMode(Manual)
	s := h.ctl.Snapshot()
	assert.Equal(t, Waiting, s.Status)
	assert.True(t, s.ResumeAuto)
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, 0, h.clock.Pending())
	assert.False(t, h.surface.Blank())

	h.clock.Advance(time.Second)
	assert.Equal(t, []int{0}, h.surface.Indices())

	require.NoError(t, h.ctl.Next())
	assert.Equal(t, []int{0, 1}, h.surface.Indices())

	h.ctl.SetMode(Automatic)
	s = h.ctl.Snapshot()
	assert.Equal(t, Paused, s.Status)
	assert.Equal(t, "Resume", Controls(s).PauseLabel)
	assert.Equal(t, 0, h.clock.Pending())

	require.NoError(t, h.ctl.Resume())
	assert.Equal(t, []int{0, 1, 2}, h.surface.Indices())
	assert.Equal(t, Finished, h.ctl.Snapshot().Status)
}

func TestManualToAutomaticRequiresRun(t *testing.T) {
	h := newHarness(t, Options{Mode: Manual})
	require.NoError(t, h.ctl.Start(threeSteps()))
	require.NoError(t, h.ctl.Next())

	h.ctl.SetMode(Automatic)
	s := h.ctl.Snapshot()
	assert.Equal(t, Waiting, s.Status)
	assert.Equal(t, "Run", Controls(s).RunLabel)
	assert.Equal(t, 0, h.clock.Pending())

	require.NoError(t, h.ctl.Run())
	assert.Equal(t, []int{0, 1}, h.surface.Indices())
	assert.Equal(t, 1, h.clock.Pending())
}

func TestClearFromEveryState(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	cases := map[string]func(h *harness){
		"idle": func(h *harness) {},
		"loading": func(h *harness) {
			h.ctl.Load(context.Background(), SourceFunc(func(ctx context.Context) (sequence.Sequence, error) {
				<-block
				return threeSteps(), nil
			}))
		},
		"waiting": func(h *harness) {
			h.ctl.SetMode(Manual)
			_ = h.ctl.Start(threeSteps())
		},
		"running": func(h *harness) { _ = h.ctl.Start(threeSteps()) },
		"paused": func(h *harness) {
			_ = h.ctl.Start(threeSteps())
			h.ctl.Pause()
		},
		"finished": func(h *harness) {
			_ = h.ctl.Start(threeSteps())
			h.clock.Advance(time.Second)
		},
		"failed": func(h *harness) { _ = h.ctl.Start(sequence.Sequence{}) },
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.ctl.SetPointCount(4)
			setup(h)

			h.ctl.Clear()
			h.ctl.Clear()

			s := h.ctl.Snapshot()
			assert.Equal(t, Idle, s.Status)
			assert.Equal(t, 0, s.Index)
			assert.Equal(t, 0, s.Total)
			assert.Nil(t, s.Transform)
			assert.Empty(t, s.Session)
			assert.Equal(t, 4, s.Points, "point gate survives a clear")
			assert.True(t, h.surface.Blank())
			assert.Equal(t, 0, h.clock.Pending())

			frames := len(h.surface.Frames())
			h.clock.Advance(10 * time.Second)
			assert.Len(t, h.surface.Frames(), frames)
		})
	}
}

func TestClearKeepsModeAndDelay(t *testing.T) {
	h := newHarness(t, Options{Mode: Manual})
	h.ctl.SetDelay(250 * time.Millisecond)
	h.ctl.Clear()
	s := h.ctl.Snapshot()
	assert.Equal(t, Manual, s.Mode)
	assert.Equal(t, 250*time.Millisecond, s.Delay)
}

func TestStartEmptySequence(t *testing.T) {
	h := newHarness(t, Options{})
	var got []error
	h.ctl.OnError(func(err error) { got = append(got, err) })

	err := h.ctl.Start(sequence.Sequence{})
	assert.ErrorIs(t, err, sequence.ErrEmptySequence)

	s := h.ctl.Snapshot()
	assert.Equal(t, Failed, s.Status)
	assert.Equal(t, 0, h.clock.Created())
	assert.Len(t, got, 1)
	assert.Contains(t, Controls(s).StatusText, "Error:")
	assert.False(t, Controls(s).RunEnabled)
	assert.False(t, Controls(s).PauseEnabled)
}

func TestStartMalformedStep(t *testing.T) {
	h := newHarness(t, Options{})
	seq := threeSteps()
	seq[1].Circles = nil

	err := h.ctl.Start(seq)
	assert.ErrorIs(t, err, sequence.ErrMalformedStep)
	assert.Equal(t, Failed, h.ctl.Snapshot().Status)
	assert.Empty(t, h.surface.Frames())
	assert.Equal(t, 0, h.clock.Created())
}

func TestStartWithOnlyUninsertedPoints(t *testing.T) {
	h := newHarness(t, Options{})
	st := step()
	st.Points = []sequence.Point{}
	st.UninsertedPoints = []sequence.Point{{X: 0, Y: 0}, {X: 10, Y: 4}}

	require.NoError(t, h.ctl.Start(sequence.Sequence{st, st}))
	assert.Equal(t, Running, h.ctl.Snapshot().Status)

	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, []int{0, 1}, h.surface.Indices())
	assert.Equal(t, Finished, h.ctl.Snapshot().Status)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestRenderFailureHaltsPlayback(t *testing.T) {
	boom := errors.New("boom")
	h := newHarness(t, Options{Render: func(s sequence.Step, i int, tr view.Transform, size render.Size) (render.Frame, error) {
		if i == 1 {
			return render.Frame{}, boom
		}
		return render.Render(s, i, tr, size)
	}})
	var got []error
	h.ctl.OnError(func(err error) { got = append(got, err) })

	require.NoError(t, h.ctl.Start(threeSteps()))
	h.clock.Advance(500 * time.Millisecond)

	s := h.ctl.Snapshot()
	assert.Equal(t, Failed, s.Status)
	assert.ErrorIs(t, s.Err, boom)
	assert.Equal(t, []error{boom}, got)
	assert.Equal(t, 0, h.clock.Pending())
	assert.Equal(t, []int{0}, h.surface.Indices())
}

func TestTransformComputedOnce(t *testing.T) {
	var seen []view.Transform
	h := newHarness(t, Options{Render: func(s sequence.Step, i int, tr view.Transform, size render.Size) (render.Frame, error) {
		seen = append(seen, tr)
		return render.Render(s, i, tr, size)
	}})

	seq := threeSteps()
	want, err := view.Fit(seq, 800, 600, view.DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, h.ctl.Start(seq))
	h.clock.Advance(time.Second)

	require.Len(t, seen, 3)
	for _, tr := range seen {
		assert.Equal(t, want, tr)
	}
	snap := h.ctl.Snapshot()
	require.NotNil(t, snap.Transform)
	assert.Equal(t, want, *snap.Transform)
}

func TestLeakedTimerCallbackIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	h.clock.leaky = true
	require.NoError(t, h.ctl.Start(threeSteps()))
	h.ctl.Pause()

	h.clock.Advance(time.Second)
	assert.Equal(t, []int{0}, h.surface.Indices())
	assert.Equal(t, Paused, h.ctl.Snapshot().Status)
}

func TestExactlyOneTimer(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.ctl.Start(threeSteps()))
	// Restarting mid-session replaces the pending tick.
	require.NoError(t, h.ctl.Start(threeSteps()))
	assert.Equal(t, 1, h.clock.Pending())

	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, []int{0, 0, 1}, h.surface.Indices())
}

func TestLoad(t *testing.T) {
	h := newHarness(t, Options{})
	var statuses []Status
	h.ctl.OnChange(func(s State) { statuses = append(statuses, s.Status) })

	err := <-h.ctl.Load(context.Background(), SourceFunc(func(ctx context.Context) (sequence.Sequence, error) {
		return threeSteps(), nil
	}))
	require.NoError(t, err)
	assert.Equal(t, Running, h.ctl.Snapshot().Status)
	assert.Equal(t, []int{0}, h.surface.Indices())
	assert.Equal(t, Loading, statuses[0])
}

func TestLoadFetchError(t *testing.T) {
	h := newHarness(t, Options{})
	err := <-h.ctl.Load(context.Background(), SourceFunc(func(ctx context.Context) (sequence.Sequence, error) {
		return nil, errors.New("connection refused")
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch sequence")

	s := h.ctl.Snapshot()
	assert.Equal(t, Failed, s.Status)
	cs := Controls(s)
	assert.True(t, cs.ClearEnabled)
	assert.False(t, cs.RunEnabled)
	assert.False(t, cs.PauseEnabled)
}

func TestStaleLoadAfterClear(t *testing.T) {
	h := newHarness(t, Options{})
	release := make(chan struct{})
	done := h.ctl.Load(context.Background(), SourceFunc(func(ctx context.Context) (sequence.Sequence, error) {
		<-release
		return threeSteps(), nil
	}))
	assert.Equal(t, Loading, h.ctl.Snapshot().Status)

	h.ctl.Clear()
	close(release)

	assert.ErrorIs(t, <-done, ErrStaleSession)
	assert.Equal(t, Idle, h.ctl.Snapshot().Status)
	assert.Empty(t, h.surface.Frames())
	assert.Equal(t, 0, h.clock.Created())
}

func TestStaleLoadSupersededByNewer(t *testing.T) {
	h := newHarness(t, Options{Mode: Manual})
	release := make(chan struct{})
	first := h.ctl.Load(context.Background(), SourceFunc(func(ctx context.Context) (sequence.Sequence, error) {
		<-release
		return threeSteps()[:1], nil
	}))
	second := h.ctl.Load(context.Background(), SourceFunc(func(ctx context.Context) (sequence.Sequence, error) {
		return threeSteps(), nil
	}))
	require.NoError(t, <-second)
	close(release)
	assert.ErrorIs(t, <-first, ErrStaleSession)
	assert.Equal(t, 3, h.ctl.Snapshot().Total)
}

func TestSession(t *testing.T) {
	h := newHarness(t, Options{Mode: Manual})
	_, _, ok := h.ctl.Session()
	assert.False(t, ok)

	require.NoError(t, h.ctl.Start(threeSteps()))
	seq, tr, ok := h.ctl.Session()
	assert.True(t, ok)
	assert.Len(t, seq, 3)
	assert.Positive(t, tr.Scale)
}

func TestFrameAndClearListeners(t *testing.T) {
	h := newHarness(t, Options{Mode: Manual})
	var frames, clears int
	h.ctl.OnFrame(func(render.Frame) { frames++ })
	h.ctl.OnClear(func() { clears++ })

	require.NoError(t, h.ctl.Start(threeSteps()))
	require.NoError(t, h.ctl.Next())
	h.ctl.Clear()

	assert.Equal(t, 1, frames)
	assert.Equal(t, 2, clears)
}
