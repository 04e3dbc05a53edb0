// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string            `json:"type,omitempty"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
	return nil
}

// DecodeAndValidate decodes the body and runs struct validation.
func DecodeAndValidate(r *http.Request, v *validator.Validate, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return err
	}
	if err := v.Struct(target); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return err
		}
		return NewValidationError(err)
	}
	return nil
}

// Result writes v with status, or a neutral problem with nilStatus when v is
// nil. Services return nil instead of leaking failure detail.
func Result[T any](w http.ResponseWriter, status int, v *T, nilStatus int) {
	if v == nil {
		if nilStatus == http.StatusNotFound {
			Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		Problem(w, nilStatus, "Operation Failed", "operation failed")
		return
	}
	JSON(w, status, v)
}

// Deleted writes 204 when ok, otherwise 404.
func Deleted(w http.ResponseWriter, ok bool) {
	if !ok {
		Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
