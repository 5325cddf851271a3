// Package response provides shared HTTP response helpers used by the API
// router and its handlers. Errors are written as RFC 7807 problem+json
// bodies.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/remotefs/pkg/rferrors"
)

// Problem is an RFC 7807 application/problem+json body.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Text writes a plain-text body with the given status code, used for the
// simple string responses register/mkdir/write/delete return.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// WriteProblem writes an RFC 7807 problem+json body.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{Title: title, Status: status, Detail: detail})
}

// statusForError maps a sentinel error kind to its HTTP status and a short
// title.
func statusForError(err error) (status int, title string) {
	switch {
	case errors.Is(err, rferrors.ErrMissing):
		return http.StatusNotFound, "not found"
	case errors.Is(err, rferrors.ErrInvalid):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, rferrors.ErrDuplicate):
		return http.StatusConflict, "already exists"
	case errors.Is(err, rferrors.ErrDenied):
		return http.StatusForbidden, "permission denied"
	case errors.Is(err, rferrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, rferrors.ErrIOFailure), errors.Is(err, rferrors.ErrInternal):
		return http.StatusInternalServerError, "internal error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// WriteError maps err to the appropriate status via statusForError and
// writes it as a problem+json body.
func WriteError(w http.ResponseWriter, err error) {
	status, title := statusForError(err)
	WriteProblem(w, status, title, err.Error())
}
