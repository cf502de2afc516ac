package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	problemBase = "https://hakagen.dev/problems/"

	ProblemTypeNotFound      = problemBase + "not-found"
	ProblemTypeBadRequest    = problemBase + "bad-request"
	ProblemTypeUnprocessable = problemBase + "data-integrity"
	ProblemTypeInternal      = problemBase + "internal-error"
	ProblemTypeRateLimited   = problemBase + "rate-limited"
	ProblemTypeConflict      = problemBase + "conflict"
	ProblemTypeTimeout       = problemBase + "timeout"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadRequest,
		Title:    "Bad Request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: instance,
	})
}

// Conflict writes a 409 problem response.
func Conflict(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: instance,
	})
}

// RunProblem maps a pipeline error onto a problem response. Bad
// parameters are the caller's fault, a day without statistics is a
// missing resource, broken reference data is unprocessable and everything
// else is a server-side failure.
func RunProblem(err error, instance string) Problem {
	p := Problem{Detail: err.Error(), Instance: instance}
	switch {
	case errors.Is(err, detection.ErrValidation):
		p.Type, p.Title, p.Status = ProblemTypeBadRequest, "Bad Request", http.StatusBadRequest
	case errors.Is(err, detection.ErrStatisticsNotFound):
		p.Type, p.Title, p.Status = ProblemTypeNotFound, "Not Found", http.StatusNotFound
	case detection.IsDataIntegrity(err):
		p.Type, p.Title, p.Status = ProblemTypeUnprocessable, "Unprocessable Entity", http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		p.Type, p.Title, p.Status = ProblemTypeTimeout, "Gateway Timeout", http.StatusGatewayTimeout
	default:
		p.Type, p.Title, p.Status = ProblemTypeInternal, "Internal Server Error", http.StatusInternalServerError
	}
	return p
}
