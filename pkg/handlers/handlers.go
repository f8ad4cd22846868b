// Package handlers provides HTTP response helpers shared by domain handlers.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// RequestIDHeader carries the request correlation id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// ErrorResponse is the JSON envelope written for every failed request.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error envelope with the given status code.
// The request id is read from the response header set by the request id middleware.
// Server errors are logged at error level; client errors at debug.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	requestID := w.Header().Get(RequestIDHeader)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "request_id", requestID, "error", err)
	} else {
		logger.Debug("request rejected", "status", status, "request_id", requestID, "error", err)
	}

	RespondJSON(w, status, ErrorResponse{
		Detail:    err.Error(),
		RequestID: requestID,
	})
}
