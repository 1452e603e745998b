package middleware

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 problem details object. The middlewares in this
// package emit it directly for failures they generate themselves (panics,
// rate limits, timeouts); handler errors go through errors.ErrorHandler
// instead.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

// Render implements the chi render.Renderer interface.
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	writeProblem(w, p)
	return nil
}

// ProblemFromStatus builds a Problem for a bare HTTP status code.
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	var problemType string

	switch status {
	case http.StatusBadRequest:
		problemType = "/errors/bad-request"
	case http.StatusUnauthorized:
		problemType = "/errors/unauthorized"
	case http.StatusForbidden:
		problemType = "/errors/forbidden"
	case http.StatusNotFound:
		problemType = "/errors/not-found"
	case http.StatusMethodNotAllowed:
		problemType = "/errors/method-not-allowed"
	case http.StatusConflict:
		problemType = "/errors/conflict"
	case http.StatusTooManyRequests:
		problemType = "/errors/rate-limit"
	case http.StatusInternalServerError:
		problemType = "/errors/internal"
	case http.StatusServiceUnavailable:
		problemType = "/errors/service-unavailable"
	case http.StatusGatewayTimeout:
		problemType = "/errors/timeout"
	default:
		problemType = "/errors/unknown"
	}

	return Problem{
		Type:   problemType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}

// writeProblem serializes a Problem with the proper media type.
func writeProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}
