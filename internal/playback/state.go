package playback

import (
	"fmt"
	"time"

	"StepBoard/internal/view"
)

// Mode is the orthogonal axis of the state machine: who advances the steps.
type Mode int

const (
	Automatic Mode = iota
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "Manual"
	}
	return "Automatic"
}

// Status is where the current session stands.
type Status int

const (
	// Idle: no sequence loaded, or fully reset.
	Idle Status = iota
	// Loading: a sequence fetch is in flight for the current session.
	Loading
	// Waiting: a sequence is loaded and nothing is scheduled. In Manual mode this is
	// the normal resting state between Next requests; in Automatic mode it means
	// Run has not been pressed yet.
	Waiting
	// Running: automatic playback with a tick pending.
	Running
	// Paused: automatic playback suspended; the index is kept.
	Paused
	// Finished: every step has been rendered.
	Finished
	// Failed: the session hit an input, fetch or render error and was halted.
	Failed
)

var statusNames = [...]string{"Idle", "Loading", "Waiting", "Running", "Paused", "Finished", "Failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is a consistent snapshot of the controller.
type State struct {
	Session string
	Mode    Mode
	Status  Status
	// Index is the number of steps rendered so far, i.e. the next step to draw.
	Index int
	Total int
	Delay time.Duration
	// Points is the number of captured input points; PointsReady is true once
	// there are enough of them to ask for a sequence.
	Points      int
	PointsReady bool
	// ResumeAuto is set when automatic playback was running or paused before
	// switching to Manual; returning to Automatic then lands in Paused.
	ResumeAuto bool
	Transform  *view.Transform
	Err        error
}

// ControlState is what the buttons should look like for a State. Deriving it in
// one place keeps labels and enablement from drifting away from the real status.
type ControlState struct {
	SubmitEnabled bool
	RunLabel      string
	RunEnabled    bool
	PauseLabel    string
	PauseEnabled  bool
	ModeLabel     string
	ClearEnabled  bool
	ExportEnabled bool
	StatusText    string
}

// Controls maps a State onto button labels, enablement and the status line.
func Controls(s State) ControlState {
	cs := ControlState{
		SubmitEnabled: s.PointsReady && s.Status != Loading,
		RunLabel:      "Run",
		PauseLabel:    "Pause",
		ModeLabel:     s.Mode.String(),
		ClearEnabled:  true,
		ExportEnabled: s.Total > 0 && s.Transform != nil,
		RunEnabled:    s.Status == Waiting,
	}

	switch s.Mode {
	case Manual:
		cs.RunLabel = "Next"
		if s.ResumeAuto {
			cs.PauseLabel = "Resume"
		}
	case Automatic:
		cs.PauseEnabled = s.Status == Running || s.Status == Paused
		if s.Status == Paused {
			cs.PauseLabel = "Resume"
		}
	}

	switch s.Status {
	case Idle:
		if s.PointsReady {
			cs.StatusText = "Ready"
		} else {
			cs.StatusText = fmt.Sprintf("Add at least %d points", MinPoints)
		}
	case Loading:
		cs.StatusText = "Loading sequence..."
	case Waiting:
		if s.Index == 0 {
			cs.StatusText = fmt.Sprintf("Sequence loaded: %d steps", s.Total)
		} else {
			cs.StatusText = fmt.Sprintf("Drew step %d of %d", s.Index, s.Total)
		}
	case Running:
		cs.StatusText = fmt.Sprintf("Drawing step %d of %d...", s.Index, s.Total)
	case Paused:
		cs.StatusText = fmt.Sprintf("Paused after step %d of %d", s.Index, s.Total)
	case Finished:
		cs.StatusText = "Drawing complete!"
	case Failed:
		cs.StatusText = fmt.Sprintf("Error: %v", s.Err)
	}
	return cs
}
