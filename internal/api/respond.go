package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"rankpilot/internal/apperr"
)

// errorDetail is the error half of the response envelope.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type dataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// writeJSON writes an arbitrary payload. The payload must carry its own
// success field; the bespoke per-endpoint response shapes do.
func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeData wraps data in the standard `{success, data}` envelope.
func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, dataEnvelope{Success: true, Data: data})
}

// writeAppError maps a service error onto the envelope and HTTP status.
// Errors outside the taxonomy surface as 500 INTERNAL_ERROR.
func writeAppError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	message := apperr.MessageOf(err)
	var e *apperr.Error
	if !errors.As(err, &e) {
		message = "internal error"
	}
	writeJSON(w, apperr.HTTPStatus(code), errorEnvelope{
		Success: false,
		Error:   errorDetail{Code: code, Message: message},
	})
}
