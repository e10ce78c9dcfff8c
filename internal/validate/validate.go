// Package validate holds the error type and small checks shared by request DTOs.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const CodeFailed = "VALIDATION_FAILED"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Error is a client-correctable input problem. Handlers render it as 400.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Failed(format string, args ...any) *Error {
	return &Error{Code: CodeFailed, Message: fmt.Sprintf(format, args...)}
}

func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return Failed("%s is required", field)
	}
	return nil
}

func MaxLen(field, value string, n int) error {
	if len([]rune(value)) > n {
		return Failed("%s must be at most %d characters", field, n)
	}
	return nil
}

func OneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return Failed("%s must be one of %s", field, strings.Join(allowed, ", "))
}

// Date parses a YYYY-MM-DD calendar date. 2024-02-30 and friends are rejected.
func Date(field, value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, Failed("%s must be a valid date (YYYY-MM-DD)", field)
	}
	return d, nil
}

// UUID accepts only the canonical 36-character form.
func UUID(field, value string) error {
	v := strings.TrimSpace(value)
	if len(v) != 36 {
		return Failed("%s must be a uuid", field)
	}
	if _, err := uuid.Parse(v); err != nil {
		return Failed("%s must be a uuid", field)
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
