// Package handlers provides shared HTTP response helpers for domain handlers.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/pulse/pkg/fault"
)

type errorBody struct {
	Error string     `json:"error"`
	Code  fault.Code `json:"code,omitempty"`
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RespondError writes an error response with an explicit status, logging
// server-side failures.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	}
	RespondJSON(w, status, errorBody{Error: err.Error(), Code: fault.CodeOf(err)})
}

// RespondFault writes an error response with the status derived from the
// error's taxonomy code.
func RespondFault(w http.ResponseWriter, logger *slog.Logger, err error) {
	RespondError(w, logger, fault.MapHTTPStatus(err), err)
}
