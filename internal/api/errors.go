package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"movebooking/internal/validate"
	"movebooking/pkg/logging"
)

const CodeUpstream = "UPSTREAM_STORE_ERROR"

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is a classified failure ready to render. Err, when set, is logged but
// never written to the client.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func BadRequest(code, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: message}
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: APIError{Code: code, Message: message},
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Fail renders err. Validation errors become 400, *Error renders as classified,
// anything else is treated as a store failure.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.Error
	if errors.As(err, &ve) {
		WriteError(w, http.StatusBadRequest, ve.Code, ve.Message)
		return
	}

	var ae *Error
	if errors.As(err, &ae) {
		if ae.Status >= http.StatusInternalServerError {
			logging.FromContext(r.Context()).Error("request failed", "code", ae.Code, "error", err)
		}
		WriteError(w, ae.Status, ae.Code, ae.Message)
		return
	}

	logging.FromContext(r.Context()).Error("upstream store error", "error", err)
	msg := "internal error"
	if ExposeDetail(r.Context()) {
		msg = err.Error()
	}
	WriteError(w, http.StatusInternalServerError, CodeUpstream, msg)
}

type detailKey struct{}

// ErrorDetail marks requests whose 500 responses may carry the underlying error text.
func ErrorDetail(expose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), detailKey{}, expose)))
		})
	}
}

func ExposeDetail(ctx context.Context) bool {
	v, _ := ctx.Value(detailKey{}).(bool)
	return v
}
