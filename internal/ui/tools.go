package ui

import (
	"fmt"
	"time"

	"StepBoard/internal/playback"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Actions are what the control bar buttons do.
type Actions struct {
	Submit      func()
	RunOrNext   func()
	TogglePause func()
	ToggleMode  func()
	Speed       func(control float64)
	Clear       func()
	Export      func()
}

// Controls is the control bar. Its look is driven entirely by Apply.
type Controls struct {
	submit *widget.Button
	run    *widget.Button
	pause  *widget.Button
	mode   *widget.Button
	clear  *widget.Button
	export *widget.Button
	speed  *widget.Slider
	delay  *widget.Label
	status *widget.Label

	maxDelay time.Duration
}

// NewControls builds the bar. The speed slider runs from minDelay to maxDelay
// inverted, so moving it right plays faster.
func NewControls(a Actions, delay, minDelay, maxDelay time.Duration) *Controls {
	c := &Controls{
		submit:   widget.NewButtonWithIcon("Submit", theme.UploadIcon(), a.Submit),
		run:      widget.NewButtonWithIcon("Run", theme.MediaPlayIcon(), a.RunOrNext),
		pause:    widget.NewButtonWithIcon("Pause", theme.MediaPauseIcon(), a.TogglePause),
		mode:     widget.NewButton("Automatic", a.ToggleMode),
		clear:    widget.NewButtonWithIcon("Clear", theme.DeleteIcon(), a.Clear),
		export:   widget.NewButtonWithIcon("Export PDF", theme.DocumentSaveIcon(), a.Export),
		delay:    widget.NewLabel(""),
		status:   widget.NewLabel(""),
		maxDelay: maxDelay,
	}
	c.speed = widget.NewSlider(0, float64((maxDelay-minDelay)/time.Millisecond))
	c.speed.Step = 10
	c.speed.SetValue(float64((maxDelay - delay) / time.Millisecond))
	c.speed.OnChanged = func(v float64) {
		if a.Speed != nil {
			a.Speed(v)
		}
	}
	c.showDelay(delay)
	return c
}

// Apply makes the bar match cs.
func (c *Controls) Apply(cs playback.ControlState, delay time.Duration) {
	setEnabled(c.submit, cs.SubmitEnabled)
	c.run.SetText(cs.RunLabel)
	if cs.RunLabel == "Next" {
		c.run.SetIcon(theme.MediaSkipNextIcon())
	} else {
		c.run.SetIcon(theme.MediaPlayIcon())
	}
	setEnabled(c.run, cs.RunEnabled)
	c.pause.SetText(cs.PauseLabel)
	if cs.PauseLabel == "Resume" {
		c.pause.SetIcon(theme.MediaPlayIcon())
	} else {
		c.pause.SetIcon(theme.MediaPauseIcon())
	}
	setEnabled(c.pause, cs.PauseEnabled)
	c.mode.SetText(cs.ModeLabel)
	setEnabled(c.clear, cs.ClearEnabled)
	setEnabled(c.export, cs.ExportEnabled)
	c.status.SetText(cs.StatusText)
	c.showDelay(delay)
}

func (c *Controls) showDelay(d time.Duration) {
	c.delay.SetText(fmt.Sprintf("%dms", d.Milliseconds()))
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

// Object lays the bar out in one row with the status line underneath.
func (c *Controls) Object() fyne.CanvasObject {
	slider := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), c.speed)
	row := container.NewHBox(
		c.submit,
		c.run,
		c.pause,
		c.mode,
		widget.NewSeparator(),
		widget.NewLabel("Speed:"),
		slider,
		c.delay,
		widget.NewSeparator(),
		c.clear,
		c.export,
		layout.NewSpacer(),
	)
	return container.NewVBox(row, c.status)
}
