package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/fentz26/tracker/internal/manager"
)

// Sentinel errors for transport-level failures.
var (
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrRouteNotFound    = errors.New("route not found")
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

// statusFor maps an error to the HTTP status the API reports for it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrNotFound), errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrSchedulingConflict):
		return http.StatusNotAcceptable
	case errors.Is(err, manager.ErrInvalidInput), errors.Is(err, manager.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: internal error: %v", err)
	}
	writeJSON(w, status, ErrorResponse{Code: status, Message: err.Error()})
}
