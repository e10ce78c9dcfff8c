package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"movebooking/internal/validate"
)

const maxBodyBytes = 1 << 20

// DecodeJSON decodes a single JSON object into dst. Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return validate.Failed("request body too large")
		case errors.Is(err, io.EOF):
			return validate.Failed("request body is empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return validate.Failed("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return validate.Failed("invalid json")
		}
	}
	if dec.More() {
		return validate.Failed("request body must contain a single json object")
	}
	return nil
}
