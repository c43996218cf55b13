package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/estimate"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps an estimator or source error to an HTTP status.
func statusFor(err error) int {
	switch estimate.Outcome(err) {
	case "precondition":
		return http.StatusBadRequest
	case "unknown_satellite":
		return http.StatusNotFound
	case "parse", "propagation", "degenerate":
		return http.StatusUnprocessableEntity
	case "unavailable":
		return http.StatusServiceUnavailable
	case "canceled":
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// statusClientClosedRequest is nginx's code for a request the client gave up on.
const statusClientClosedRequest = 499

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError writes err with the status and kind derived from its type.
// Server-side failures are logged; client errors are not.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= 500 {
		logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: estimate.Outcome(err)})
}
