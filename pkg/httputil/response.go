package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Response is the JSON envelope returned by every endpoint.
type Response struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message,omitempty"`
	Data      any                    `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Errors    []apperrors.FieldError `json:"errors,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails, the error is logged but headers are already sent so nothing can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a successful envelope carrying data.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// WriteFailure writes an error envelope without going through an ErrorWriter.
// Middleware that rejects requests before a handler runs uses it directly.
func WriteFailure(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, Response{
		Success:   false,
		Message:   message,
		Error:     code,
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}

// ErrorWriter translates errors returned by handlers into error envelopes.
// It is the only place where error kinds are mapped to status codes.
type ErrorWriter struct {
	logger      *slog.Logger
	development bool
}

// NewErrorWriter creates an ErrorWriter. Outside development the message of
// unexpected errors is replaced with a generic one.
func NewErrorWriter(logger *slog.Logger, development bool) *ErrorWriter {
	return &ErrorWriter{logger: logger, development: development}
}

// WriteError writes a standardized error response based on the error type.
// It prefers the request-scoped logger from context (set by the RequestLogger
// middleware) over the writer's own logger.
func (ew *ErrorWriter) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && ew.logger != nil {
		l = ew.logger
	}

	resp := Response{
		Success:   false,
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		err = valErr.AppError()
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status != http.StatusInternalServerError {
		resp.Message = appErr.Message
		resp.Error = appErr.Code
		resp.Errors = appErr.Fields
		WriteJSON(w, appErr.Status, resp)
		return
	}

	status := apperrors.HTTPStatus(err)
	switch status {
	case http.StatusNotFound:
		resp.Error, resp.Message = "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		resp.Error, resp.Message = "CONFLICT", "resource already exists"
	case http.StatusBadRequest:
		resp.Error, resp.Message = "BAD_REQUEST", "bad request"
	case http.StatusUnauthorized:
		resp.Error, resp.Message = "UNAUTHORIZED", "unauthorized"
	case http.StatusForbidden:
		resp.Error, resp.Message = "FORBIDDEN", "forbidden"
	case http.StatusUnprocessableEntity:
		resp.Error, resp.Message = "VALIDATION_ERROR", "request validation failed"
	case http.StatusTooManyRequests:
		resp.Error, resp.Message = "TOO_MANY_REQUESTS", "too many requests"
	default:
		status = http.StatusInternalServerError
		resp.Error = "INTERNAL_ERROR"
		resp.Message = "an internal error occurred"
		if ew.development {
			resp.Message = err.Error()
		}
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, resp)
}

// ParseUUID validates that the given path parameter is a UUID.
func ParseUUID(param string) (uuid.UUID, error) {
	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("invalid id: " + param)
	}
	return id, nil
}
