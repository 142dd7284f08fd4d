package render

import "sync"

// Surface is a drawing target. Draw replaces whatever the surface shows with the
// frame; Clear wipes it back to blank.
type Surface interface {
	Clear()
	Draw(Frame)
}

// Recorder is a Surface that remembers what it was asked to draw.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
	clears int
	blank  bool
}

func NewRecorder() *Recorder {
	return &Recorder{blank: true}
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
	r.blank = true
}

func (r *Recorder) Draw(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	r.blank = false
}

// Frames returns a copy of every frame drawn so far.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Indices lists the step index of each drawn frame in order.
func (r *Recorder) Indices() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.Index
	}
	return out
}

// Blank reports whether the last call was Clear (or nothing was drawn yet).
func (r *Recorder) Blank() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blank
}

func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

// Multi fans every call out to several surfaces, in order.
type Multi []Surface

func (m Multi) Clear() {
	for _, s := range m {
		s.Clear()
	}
}

func (m Multi) Draw(f Frame) {
	for _, s := range m {
		s.Draw(f)
	}
}
