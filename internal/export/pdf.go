// Package export writes a playback session to files.
package export

import (
	"fmt"
	"io"
	"os"

	"StepBoard/internal/render"
	"StepBoard/internal/sequence"
	"StepBoard/internal/view"

	"github.com/jung-kurt/gofpdf"
)

const (
	captionSize = 10
	notesSize   = 7
)

// PDF writes one page per step, each page the size of the canvas in points.
func PDF(w io.Writer, seq sequence.Sequence, t view.Transform, size render.Size) error {
	p, err := document(seq, t, size)
	if err != nil {
		return err
	}
	return p.Output(w)
}

// WriteFile is PDF into a new file at path.
func WriteFile(path string, seq sequence.Sequence, t view.Transform, size render.Size) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := PDF(f, seq, t, size); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

func document(seq sequence.Sequence, t view.Transform, size render.Size) (*gofpdf.Fpdf, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid page size %vx%v", size.Width, size.Height)
	}

	p := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	p.SetTitle("StepBoard sequence", true)
	p.SetCreator("StepBoard", true)
	p.SetAutoPageBreak(false, 0)

	for i, st := range seq {
		frame, err := render.Render(st, i, t, size)
		if err != nil {
			return nil, err
		}
		p.AddPage()
		drawFrame(p, frame)

		p.SetDashPattern(nil, 0)
		p.SetTextColor(0, 0, 0)
		p.SetFont("Helvetica", "B", captionSize)
		p.Text(8, 8+captionSize, fmt.Sprintf("Step %d of %d", i+1, len(seq)))
		p.SetFont("Helvetica", "", notesSize)
		y := size.Height - 6
		for j := len(frame.Notes) - 1; j >= 0 && y > 2*captionSize; j-- {
			p.Text(8, y, frame.Notes[j])
			y -= notesSize + 2
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return p, nil
}

func drawFrame(p *gofpdf.Fpdf, f render.Frame) {
	for _, op := range f.Ops {
		r, g, b := int(op.Color.R), int(op.Color.G), int(op.Color.B)
		switch op.Kind {
		case render.OpClear:
			// Pages start blank.
		case render.OpMarker:
			p.SetFillColor(r, g, b)
			p.Circle(op.X, op.Y, op.Radius, "F")
		case render.OpLine:
			p.SetDashPattern(nil, 0)
			p.SetDrawColor(r, g, b)
			p.SetLineWidth(op.Width)
			p.Line(op.X, op.Y, op.X2, op.Y2)
		case render.OpCircle:
			p.SetDashPattern(op.Dash, 0)
			p.SetDrawColor(r, g, b)
			p.SetLineWidth(op.Width)
			p.Circle(op.X, op.Y, op.Radius, "D")
		}
	}
}
