package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/internal/synth"
)

const maxRunBody = 64 << 10

// RunRequest overrides the configured run parameters. Empty fields keep
// the configured value.
type RunRequest struct {
	Date          string  `json:"date,omitempty"`  // DD,MM,YYYY
	Start         string  `json:"start,omitempty"` // HH:MM:SS
	End           string  `json:"end,omitempty"`   // HH:MM:SS
	AnomalousWeek *int    `json:"anomalous_week,omitempty"`
	Seed          *uint64 `json:"seed,omitempty"`
}

// RunResponse keeps the statusCode/body envelope of the batch job and adds
// the run summary.
type RunResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
	*synth.Result
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid run request: "+err.Error(), r.URL.Path)
		return
	}

	params, err := s.params(req)
	if err != nil {
		WriteProblem(w, RunProblem(err, r.URL.Path))
		return
	}

	if !s.running.TryLock() {
		Conflict(w, "a run is already in progress", r.URL.Path)
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RunTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx, params)
	if err != nil {
		s.logger.Warn("run failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		WriteProblem(w, RunProblem(err, r.URL.Path))
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{
		StatusCode: http.StatusOK,
		Body:       s.summary(res),
		Result:     res,
	})
}

func (s *Server) summary(res *synth.Result) string {
	if s.opts.Target != "" {
		return "CSV generated and sent to " + s.opts.Target
	}
	return "CSV generated at " + res.Artifact.Location
}
