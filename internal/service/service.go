// Package service is the step service: it collects input points over HTTP and
// answers with the construction sequence for them.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"StepBoard/internal/sequence"
	"StepBoard/internal/state"
)

// MinPoints is how many points a sequence request needs.
const MinPoints = 3

// maxPointBody caps a save_point request body.
const maxPointBody = 1 << 10

var ErrNotEnoughPoints = fmt.Errorf("at least %d points are required", MinPoints)

type Server struct {
	points  *state.PointSet
	builder Builder
	mux     *http.ServeMux
}

func New(points *state.PointSet, builder Builder) *Server {
	s := &Server{points: points, builder: builder, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /save_point", s.savePoint)
	s.mux.HandleFunc("GET /get_points", s.getPoints)
	s.mux.HandleFunc("POST /clear_points", s.clearPoints)
	s.mux.HandleFunc("GET /get_drawing_sequence", s.drawingSequence)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type savePointRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s *Server) savePoint(w http.ResponseWriter, r *http.Request) {
	var req savePointRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxPointBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, fmt.Errorf("decode point: %w", err))
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusBadRequest, errors.New("point needs x and y"))
		return
	}
	if _, added := s.points.Add(*req.X, *req.Y); added {
		log.Printf("[SERVICE] Saved point (%g, %g)", *req.X, *req.Y)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": s.points.Len()})
}

func (s *Server) getPoints(w http.ResponseWriter, r *http.Request) {
	pts := s.points.Coords()
	writeJSON(w, http.StatusOK, map[string]any{"points": pts})
}

func (s *Server) clearPoints(w http.ResponseWriter, r *http.Request) {
	s.points.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (s *Server) drawingSequence(w http.ResponseWriter, r *http.Request) {
	pts := s.points.Coords()
	if len(pts) < MinPoints {
		writeError(w, http.StatusBadRequest, ErrNotEnoughPoints)
		return
	}
	seq, err := s.builder.Build(r.Context(), pts)
	if err == nil {
		err = seq.Validate()
	}
	if err != nil {
		log.Printf("[SERVICE] Building sequence for %d points failed: %v", len(pts), err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.Printf("[SERVICE] Built %d steps for %d points", len(seq), len(pts))
	w.Header().Set("Content-Type", "application/json")
	if err := sequence.Encode(w, seq); err != nil {
		log.Printf("[SERVICE] Writing sequence failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVICE] Writing response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
