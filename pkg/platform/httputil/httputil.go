// Package httputil holds the JSON response helpers shared by all HTTP
// handlers: one place that maps domain error codes to statuses and keeps
// internal failure detail off the wire.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "tutela/pkg/domain-errors"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:      http.StatusBadRequest,
	dErrors.CodeBadRequest:        http.StatusBadRequest,
	dErrors.CodeNotFound:          http.StatusNotFound,
	dErrors.CodeInvalidState:      http.StatusConflict,
	dErrors.CodeInvalidTransition: http.StatusConflict,
	dErrors.CodeUnavailable:       http.StatusServiceUnavailable,
	dErrors.CodeAuditWriteFailed:  http.StatusServiceUnavailable,
	dErrors.CodeTimeout:           http.StatusGatewayTimeout,
	dErrors.CodeUnauthorized:      http.StatusUnauthorized,
	dErrors.CodeInternal:          http.StatusInternalServerError,
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and JSON body. Messages
// travel to the client only for caller errors; server-side failure detail
// stays in the logs.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.ErrorDescription = de.Message
		}
	}
	if code == dErrors.CodeInternal {
		body.Error = "internal_error"
	}
	WriteJSON(w, status, body)
}

// DecodeAndPrepare decodes the JSON request body into T, trims whitespace
// from its string fields, and runs its Validate method when it has one. On
// failure it writes the error response itself and returns ok=false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "request decode failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		var zero T
		return zero, false
	}

	Sanitize(&req)

	if v, ok := any(&req).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			var zero T
			return zero, false
		}
	}
	return req, true
}
