package net

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"StepBoard/internal/sequence"
)

// ServiceError is a non-2xx answer from the step service.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("step service: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("step service: %s (%d)", e.Message, e.Status)
}

// Client talks to the step service.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the service at base, e.g. "http://10.0.0.5:5000".
// A nil hc gets a client with a 10s timeout.
func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimSuffix(base, "/"), http: hc}
}

func (c *Client) BaseURL() string { return c.base }

// SavePoint stores p and returns how many points the service now holds.
func (c *Client) SavePoint(ctx context.Context, p sequence.Point) (int, error) {
	body, err := json.Marshal(map[string]float64{"x": p.X, "y": p.Y})
	if err != nil {
		return 0, err
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/save_point", body, &resp); err != nil {
		return 0, fmt.Errorf("save point: %w", err)
	}
	return resp.Count, nil
}

func (c *Client) Points(ctx context.Context) ([]sequence.Point, error) {
	var resp struct {
		Points []sequence.Point `json:"points"`
	}
	if err := c.do(ctx, http.MethodGet, "/get_points", nil, &resp); err != nil {
		return nil, fmt.Errorf("get points: %w", err)
	}
	return resp.Points, nil
}

func (c *Client) ClearPoints(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/clear_points", nil, nil); err != nil {
		return fmt.Errorf("clear points: %w", err)
	}
	return nil
}

// FetchSequence asks the service to build the sequence for the stored points.
func (c *Client) FetchSequence(ctx context.Context) (sequence.Sequence, error) {
	resp, err := c.send(ctx, http.MethodGet, "/get_drawing_sequence", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return sequence.Decode(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and turns non-2xx answers into a *ServiceError.
// On success the caller owns the body.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()
	se := &ServiceError{Status: resp.StatusCode}
	var msg struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&msg); err == nil {
		se.Message = msg.Error
	}
	return nil, se
}
