package ui

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"StepBoard/internal/export"
	stepnet "StepBoard/internal/net"
	"StepBoard/internal/playback"
	"StepBoard/internal/render"
	"StepBoard/internal/sequence"
	"StepBoard/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// Player is the desktop window: the board, the control bar and the coordinate
// notes of the current step.
type Player struct {
	win      fyne.Window
	ctl      *playback.Controller
	client   *stepnet.Client
	points   *state.PointSet
	board    *Board
	controls *Controls
	notes    *widget.Label
	ctx      context.Context
}

// PlayerOptions carries the delay bounds for the speed slider and an optional
// share link to show in the title.
type PlayerOptions struct {
	MinDelay  time.Duration
	MaxDelay  time.Duration
	ShareLink string
}

// NewPlayer wires ctl, which must draw onto board, to a new window of a.
func NewPlayer(ctx context.Context, a fyne.App, ctl *playback.Controller, board *Board, client *stepnet.Client, opts PlayerOptions) *Player {
	title := "StepBoard"
	if opts.ShareLink != "" {
		title += " - watch at " + opts.ShareLink
	}
	p := &Player{
		win:    a.NewWindow(title),
		ctl:    ctl,
		client: client,
		points: state.NewPointSet(),
		board:  board,
		notes:  widget.NewLabel(""),
		ctx:    ctx,
	}
	p.notes.Wrapping = fyne.TextWrapWord

	snap := ctl.Snapshot()
	p.controls = NewControls(Actions{
		Submit:      p.submit,
		RunOrNext:   p.runOrNext,
		TogglePause: p.togglePause,
		ToggleMode:  p.toggleMode,
		Speed:       ctl.SetSpeed,
		Clear:       p.clear,
		Export:      p.export,
	}, snap.Delay, opts.MinDelay, opts.MaxDelay)
	p.controls.Apply(playback.Controls(snap), snap.Delay)

	board.OnTap = p.addPoint
	// Points pulled from the service are pushed back too; saving a point the
	// service already holds is a no-op there.
	p.points.OnOp = p.pushOp

	// Listeners run under the controller's lock: copy what is needed and hand
	// the widget work to the UI goroutine.
	ctl.OnChange(func(s playback.State) {
		cs := playback.Controls(s)
		fyne.Do(func() { p.controls.Apply(cs, s.Delay) })
	})
	ctl.OnFrame(func(f render.Frame) {
		text := strings.Join(f.Notes, "\n")
		fyne.Do(func() { p.notes.SetText(text) })
	})
	ctl.OnClear(func() {
		fyne.Do(func() { p.notes.SetText("") })
	})
	ctl.OnError(func(err error) {
		log.Printf("[PLAYER] Session failed: %v", err)
	})

	notes := container.NewVScroll(p.notes)
	notes.SetMinSize(fyne.NewSize(220, 0))
	p.win.SetContent(container.NewBorder(p.controls.Object(), nil, nil, notes, board))
	p.win.Resize(fyne.NewSize(1100, 760))
	return p
}

// Run shows the window until it is closed, pulling in the points the service
// already has in the background.
func (p *Player) Run() {
	go p.syncPoints()
	p.win.ShowAndRun()
}

func (p *Player) syncPoints() {
	ctx, cancel := context.WithTimeout(p.ctx, 3*time.Second)
	defer cancel()
	pts, err := p.client.Points(ctx)
	if err != nil {
		log.Printf("[PLAYER] Could not load existing points from %s: %v", p.client.BaseURL(), err)
		return
	}
	for _, pt := range pts {
		p.points.Add(pt.X, pt.Y)
	}
	p.pointsChanged()
	log.Printf("[PLAYER] Loaded %d points from %s", len(pts), p.client.BaseURL())
}

// pushOp mirrors local point changes to the service.
func (p *Player) pushOp(op state.Op) {
	switch op.Type {
	case state.OpAddPoint:
		pt := op.Point.Coord()
		go func() {
			if _, err := p.client.SavePoint(p.ctx, pt); err != nil {
				log.Printf("[PLAYER] %v", err)
			}
		}()
	case state.OpClearPoints:
		go func() {
			if err := p.client.ClearPoints(p.ctx); err != nil {
				log.Printf("[PLAYER] %v", err)
			}
		}()
	}
}

func (p *Player) addPoint(x, y float64) {
	pt := sequence.Point{X: x, Y: y}
	if _, tr, ok := p.ctl.Session(); ok {
		pt = tr.Invert(x, y)
	}
	pt = sequence.Point{X: round2(pt.X), Y: round2(pt.Y)}
	if _, added := p.points.Add(pt.X, pt.Y); added {
		p.pointsChanged()
	}
}

func (p *Player) pointsChanged() {
	p.ctl.SetPointCount(p.points.Len())
	p.board.SetPoints(p.points.Coords())
}

func (p *Player) submit() {
	done := p.ctl.Load(p.ctx, p.client)
	go func() {
		if err := <-done; err != nil && !errors.Is(err, playback.ErrStaleSession) {
			log.Printf("[PLAYER] Loading sequence: %v", err)
		}
	}()
}

func (p *Player) runOrNext() {
	var err error
	if p.ctl.Snapshot().Mode == playback.Manual {
		err = p.ctl.Next()
	} else {
		err = p.ctl.Run()
	}
	if err != nil {
		log.Printf("[PLAYER] %v", err)
	}
}

func (p *Player) togglePause() {
	if err := p.ctl.TogglePause(); err != nil {
		log.Printf("[PLAYER] %v", err)
	}
}

func (p *Player) toggleMode() {
	if p.ctl.Snapshot().Mode == playback.Manual {
		p.ctl.SetMode(playback.Automatic)
	} else {
		p.ctl.SetMode(playback.Manual)
	}
}

func (p *Player) clear() {
	p.ctl.Clear()
	p.points.Clear()
	p.pointsChanged()
}

func (p *Player) export() {
	seq, tr, ok := p.ctl.Session()
	if !ok {
		return
	}
	size := p.ctl.Size()
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, p.win)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()
		if err := export.PDF(w, seq, tr, size); err != nil {
			dialog.ShowError(err, p.win)
			return
		}
		log.Printf("[PLAYER] Exported %d steps to %s", len(seq), w.URI())
	}, p.win)
	d.SetFileName("stepboard.pdf")
	d.Show()
}

// round2 keeps two decimals, like the coordinates the board reports.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RunViewer opens a read-only window mirroring the hub at url.
func RunViewer(ctx context.Context, a fyne.App, url string, size render.Size) {
	win := a.NewWindow("StepBoard - watching " + url)
	board := NewBoard(size)
	status := widget.NewLabel("Connecting...")
	win.SetContent(container.NewBorder(status, nil, nil, nil, board))
	win.Resize(fyne.NewSize(900, 700))

	ctx, cancel := context.WithCancel(ctx)
	win.SetOnClosed(cancel)
	go func() {
		err := stepnet.Watch(ctx, url, func(m stepnet.Message) {
			switch m.Type {
			case "frame":
				if m.Frame != nil {
					board.Draw(*m.Frame)
				}
			case "clear":
				board.Clear()
			case "state":
				if m.Status != nil {
					text := m.Status.Text
					fyne.Do(func() { status.SetText(text) })
				}
			}
		})
		msg := "Disconnected"
		if err != nil && !errors.Is(err, context.Canceled) {
			msg = "Disconnected: " + err.Error()
		}
		log.Printf("[WATCH] %s", msg)
		fyne.Do(func() { status.SetText(msg) })
	}()
	win.ShowAndRun()
}
