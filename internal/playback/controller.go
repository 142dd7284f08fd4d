// Package playback drives a step sequence onto a render surface, either on a timer
// or one step per request, with pause/resume and mode switching.
//
// A Controller owns all playback state. Every transition happens under one mutex,
// which also serializes rendering, so the surface has a single writer and at most
// one tick is ever scheduled. Timer callbacks that lose a race with a cancel are
// recognised by their generation number and dropped.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StepBoard/internal/render"
	"StepBoard/internal/sequence"
	"StepBoard/internal/view"

	"github.com/google/uuid"
)

// ErrStaleSession is returned when a fetched sequence arrives for a session that
// was cleared or replaced in the meantime.
var ErrStaleSession = errors.New("stale session")

// Source supplies the sequence for a session.
type Source interface {
	FetchSequence(ctx context.Context) (sequence.Sequence, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (sequence.Sequence, error)

func (f SourceFunc) FetchSequence(ctx context.Context) (sequence.Sequence, error) { return f(ctx) }

// RenderFunc produces the frame for one step.
type RenderFunc func(step sequence.Step, index int, t view.Transform, size render.Size) (render.Frame, error)

// Options configure a Controller. Zero values fall back to defaults.
type Options struct {
	Size      render.Size
	View      view.Options
	Delay     time.Duration
	MinDelay  time.Duration
	MaxDelay  time.Duration
	Mode      Mode
	Scheduler Scheduler
	Render    RenderFunc
}

func (o *Options) defaults() {
	if o.Size.Width <= 0 || o.Size.Height <= 0 {
		o.Size = render.Size{Width: 800, Height: 600}
	}
	if o.View == (view.Options{}) {
		o.View = view.DefaultOptions()
	}
	if o.MinDelay <= 0 {
		o.MinDelay = DefaultMinDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Delay <= 0 {
		o.Delay = DefaultDelay
	}
	if o.Delay < o.MinDelay {
		o.Delay = o.MinDelay
	}
	if o.Scheduler == nil {
		o.Scheduler = WallClock{}
	}
	if o.Render == nil {
		o.Render = render.Render
	}
}

// Controller is the playback state machine.
type Controller struct {
	mu      sync.Mutex
	opts    Options
	surface render.Surface

	session    string
	seq        sequence.Sequence
	transform  *view.Transform
	mode       Mode
	status     Status
	index      int
	delay      time.Duration
	points     int
	resumeAuto bool
	err        error

	timer    Timer
	timerGen uint64

	onChange []func(State)
	onFrame  []func(render.Frame)
	onClear  []func()
	onError  []func(error)
}

// NewController creates an idle controller drawing onto surface.
func NewController(surface render.Surface, opts Options) *Controller {
	opts.defaults()
	return &Controller{
		opts:    opts,
		surface: surface,
		mode:    opts.Mode,
		delay:   opts.Delay,
	}
}

// OnChange registers a listener called with a fresh snapshot after every transition.
// Listeners run while the controller is locked and must not call back into it.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// OnFrame registers a listener for every rendered frame.
func (c *Controller) OnFrame(fn func(render.Frame)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = append(c.onFrame, fn)
}

// OnClear registers a listener for surface resets.
func (c *Controller) OnClear(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClear = append(c.onClear, fn)
}

// OnError registers a listener for session failures, including ones raised from
// timer ticks where there is no caller to return to.
func (c *Controller) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = append(c.onError, fn)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := State{
		Session:     c.session,
		Mode:        c.mode,
		Status:      c.status,
		Index:       c.index,
		Total:       len(c.seq),
		Delay:       c.delay,
		Points:      c.points,
		PointsReady: c.points >= MinPoints,
		ResumeAuto:  c.resumeAuto,
		Err:         c.err,
	}
	if c.transform != nil {
		t := *c.transform
		s.Transform = &t
	}
	return s
}

// Session returns the loaded sequence and its transform, for exporting.
func (c *Controller) Session() (sequence.Sequence, view.Transform, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == nil || c.transform == nil {
		return nil, view.Transform{}, false
	}
	return c.seq, *c.transform, true
}

// Size is the logical canvas size frames are rendered for.
func (c *Controller) Size() render.Size {
	return c.opts.Size
}

// Start begins a new session with seq. In Automatic mode the first step is drawn
// immediately and the rest follow on the timer; in Manual mode the controller
// waits for Next. An empty or malformed sequence fails the session before any
// timer is created.
func (c *Controller) Start(seq sequence.Sequence) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimer()
	c.session = uuid.NewString()
	return c.startLocked(seq)
}

// Load fetches the sequence from src for a new session. The result is applied only
// if the session is still current when the fetch completes; a Clear or another
// Load in between makes it stale and it is discarded. The returned channel yields
// the outcome once.
func (c *Controller) Load(ctx context.Context, src Source) <-chan error {
	c.mu.Lock()
	c.cancelTimer()
	token := uuid.NewString()
	c.session = token
	c.seq, c.transform, c.err = nil, nil, nil
	c.index = 0
	c.resumeAuto = false
	c.status = Loading
	c.clearSurface()
	c.changed()
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		seq, err := src.FetchSequence(ctx)
		done <- c.apply(token, seq, err)
	}()
	return done
}

func (c *Controller) apply(token string, seq sequence.Sequence, fetchErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.session || c.status != Loading {
		logger().Debug("discarding stale sequence", "session", token, "current", c.session)
		return ErrStaleSession
	}
	if fetchErr != nil {
		err := fmt.Errorf("fetch sequence: %w", fetchErr)
		c.fail(err)
		return err
	}
	return c.startLocked(seq)
}

func (c *Controller) startLocked(seq sequence.Sequence) error {
	if err := seq.Validate(); err != nil {
		c.seq, c.transform, c.index = nil, nil, 0
		c.fail(err)
		return err
	}
	t, err := view.Fit(seq, c.opts.Size.Width, c.opts.Size.Height, c.opts.View)
	if err != nil {
		c.seq, c.transform, c.index = nil, nil, 0
		c.fail(err)
		return err
	}

	c.seq = seq
	c.transform = &t
	c.index = 0
	c.err = nil
	c.resumeAuto = false
	c.clearSurface()
	logger().Info("session started", "session", c.session, "steps", len(seq), "mode", c.mode, "scale", t.Scale)

	if c.mode == Manual {
		c.status = Waiting
		c.changed()
		return nil
	}
	c.status = Running
	c.changed()
	return c.tick()
}

// Run starts automatic playback of a loaded sequence that is waiting.
func (c *Controller) Run() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != Automatic || c.status != Waiting {
		return nil
	}
	c.status = Running
	c.changed()
	return c.tick()
}

// Pause suspends automatic playback between ticks. It reports whether anything
// changed.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pause()
}

// Resume continues paused playback from the current index, drawing the next step
// right away.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resume()
}

// TogglePause backs the single Pause/Resume button.
func (c *Controller) TogglePause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case Running:
		c.pause()
	case Paused:
		return c.resume()
	}
	return nil
}

func (c *Controller) pause() bool {
	if c.status != Running {
		return false
	}
	c.cancelTimer()
	c.status = Paused
	c.changed()
	return true
}

func (c *Controller) resume() error {
	if c.status != Paused || c.mode != Automatic {
		return nil
	}
	c.status = Running
	c.changed()
	return c.tick()
}

// Next draws exactly one step in Manual mode. It never schedules a timer and is a
// no-op once the sequence is finished.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != Manual || c.status != Waiting {
		return nil
	}
	if err := c.renderCurrent(); err != nil {
		return err
	}
	if c.index >= len(c.seq) {
		c.status = Finished
	}
	c.changed()
	return nil
}

// SetMode switches between Automatic and Manual, keeping the index and whatever
// is on the surface. Any pending tick is cancelled first. Going to Automatic does
// not start playback by itself: it lands in Paused if automatic playback had been
// under way, otherwise in Waiting for Run.
func (c *Controller) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m == c.mode {
		return
	}
	c.cancelTimer()
	switch m {
	case Manual:
		if c.status == Running || c.status == Paused {
			c.resumeAuto = true
			c.status = Waiting
		}
	case Automatic:
		if c.status == Waiting && c.resumeAuto {
			c.status = Paused
		}
		c.resumeAuto = false
	}
	c.mode = m
	logger().Debug("mode changed", "mode", m, "status", c.status, "index", c.index)
	c.changed()
}

// SetDelay changes the delay used for the next scheduled tick. A tick that is
// already pending keeps its original deadline.
func (c *Controller) SetDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < c.opts.MinDelay {
		d = c.opts.MinDelay
	}
	c.delay = d
	c.changed()
}

// SetSpeed applies an inverted speed control value, see DelayForSpeed.
func (c *Controller) SetSpeed(control float64) {
	c.SetDelay(DelayForSpeed(control, c.opts.MaxDelay, c.opts.MinDelay))
}

// SetPointCount records how many input points exist; submitting is gated on it.
func (c *Controller) SetPointCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 {
		n = 0
	}
	c.points = n
	c.changed()
}

// Clear cancels any pending tick, invalidates the session (so in-flight fetches
// are discarded), drops the sequence and transform and blanks the surface. It is
// safe to call in any state, any number of times.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimer()
	c.session = ""
	c.seq, c.transform, c.err = nil, nil, nil
	c.index = 0
	c.resumeAuto = false
	c.status = Idle
	c.clearSurface()
	c.changed()
}

// tick is the body of one automatic step. Callers hold mu.
func (c *Controller) tick() error {
	if c.status != Running {
		return nil
	}
	if err := c.renderCurrent(); err != nil {
		return err
	}
	if c.index >= len(c.seq) {
		c.status = Finished
		logger().Info("session finished", "session", c.session, "steps", len(c.seq))
		c.changed()
		return nil
	}
	c.schedule()
	c.changed()
	return nil
}

func (c *Controller) renderCurrent() error {
	frame, err := c.opts.Render(c.seq[c.index], c.index, *c.transform, c.opts.Size)
	if err != nil {
		c.fail(err)
		return err
	}
	c.surface.Draw(frame)
	for _, fn := range c.onFrame {
		fn(frame)
	}
	c.index++
	return nil
}

func (c *Controller) schedule() {
	c.cancelTimer()
	gen := c.timerGen
	c.timer = c.opts.Scheduler.AfterFunc(c.delay, func() { c.fire(gen) })
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.timerGen || c.timer == nil {
		logger().Debug("dropping stale tick", "gen", gen, "current", c.timerGen)
		return
	}
	c.timer = nil
	c.timerGen++
	// Errors from timer ticks reach the caller through OnError.
	_ = c.tick()
}

// cancelTimer stops the pending tick, if any, and bumps the generation so a
// callback that already escaped Stop is ignored.
func (c *Controller) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Controller) fail(err error) {
	c.cancelTimer()
	c.status = Failed
	c.err = err
	logger().Warn("session failed", "session", c.session, "err", err)
	for _, fn := range c.onError {
		fn(err)
	}
	c.changed()
}

func (c *Controller) clearSurface() {
	c.surface.Clear()
	for _, fn := range c.onClear {
		fn()
	}
}

func (c *Controller) changed() {
	if len(c.onChange) == 0 {
		return
	}
	s := c.snapshot()
	for _, fn := range c.onChange {
		fn(s)
	}
}
