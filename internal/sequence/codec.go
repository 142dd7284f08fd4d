package sequence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("point needs 2 coordinates, got %d", len(raw))
	}
	p.X, p.Y = raw[0], raw[1]
	return nil
}

func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Point{e.A, e.B})
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	var raw []Point
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("edge needs 2 endpoints, got %d", len(raw))
	}
	e.A, e.B = raw[0], raw[1]
	return nil
}

func (c Circle) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{c.Center.X, c.Center.Y, c.Radius})
}

func (c *Circle) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("circle needs x, y and radius, got %d values", len(raw))
	}
	if raw[2] < 0 {
		return fmt.Errorf("negative radius %v", raw[2])
	}
	c.Center = Point{X: raw[0], Y: raw[1]}
	c.Radius = raw[2]
	return nil
}

type wireStep struct {
	Points           []Point  `json:"points"`
	UninsertedPoints []Point  `json:"uninserted_points"`
	Edges            []Edge   `json:"edges"`
	Circles          []Circle `json:"circles"`
}

// MarshalJSON refuses to encode a malformed step rather than emitting nulls.
func (s Step) MarshalJSON() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(wireStep(s))
}

// UnmarshalJSON requires all four fields to be present and non-null.
func (s *Step) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return &StepError{Index: -1, Field: "", Err: err}
	}
	if fields == nil {
		return &StepError{Index: -1, Field: "", Err: errMissing}
	}

	var out Step
	targets := []struct {
		name string
		dst  any
	}{
		{FieldPoints, &out.Points},
		{FieldUninserted, &out.UninsertedPoints},
		{FieldEdges, &out.Edges},
		{FieldCircles, &out.Circles},
	}
	for _, t := range targets {
		raw, ok := fields[t.name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return &StepError{Index: -1, Field: t.name, Err: errMissing}
		}
		if err := json.Unmarshal(raw, t.dst); err != nil {
			return &StepError{Index: -1, Field: t.name, Err: err}
		}
	}
	// "[]" decodes to a non-nil empty slice, so presence survives into Validate.
	*s = out
	return nil
}

// Decode reads a JSON array of steps and validates it. The step index is
// attached to any decoding error.
func Decode(r io.Reader) (Sequence, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode sequence: %w", err)
	}
	seq := make(Sequence, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &seq[i]); err != nil {
			return nil, atIndex(err, i)
		}
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// Encode writes the sequence as a JSON array.
func Encode(w io.Writer, seq Sequence) error {
	if err := seq.Validate(); err != nil {
		return err
	}
	return json.NewEncoder(w).Encode([]Step(seq))
}
