package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/logging"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MessageResponse is the body of endpoints that only report an outcome
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.GetLoggerFromContext(context.Background()).Error("failed to encode JSON response", "error", err)
	}
}

// RespondMessage sends {"message": msg}
func RespondMessage(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, MessageResponse{Message: message}, statusCode)
}

// RespondError sends a JSON error response with the given message and status code.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// RespondErrorWithCode sends a JSON error response with a machine-readable error code.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)
}

// HandlerFunc is an http handler that reports failures by returning them
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts fn into an http.HandlerFunc and is the one place errors are
// turned into responses. *apperr.Error keeps its status and message; anything
// else is a 500 with a generic message.
func Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		WriteError(w, r, err)
	}
}

// WriteError logs err with the request logger and writes the JSON error body
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(err, http.StatusInternalServerError, apperr.CodeInternal, "Internal server error")
	}

	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", appErr.Status, "code", appErr.Code, "error", err.Error())
	} else {
		logger.Warn("request rejected", "status", appErr.Status, "code", appErr.Code, "error", err.Error())
	}

	RespondErrorWithCode(w, appErr.Message, appErr.Code, appErr.Status)
}

// DecodeJSON decodes the request body into dst. An empty body leaves dst
// untouched; malformed JSON is a 400.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(err, http.StatusBadRequest, apperr.CodeInvalidRequestBody, "Invalid request body")
	}
	return nil
}
