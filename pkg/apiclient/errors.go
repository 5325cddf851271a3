package apiclient

import (
	"encoding/json"
	"fmt"
)

// APIError represents an RFC 7807 problem+json error response from the
// server (response.Problem in pkg/api/response), or a plain-text 4xx/5xx body when the server
// didn't have a structured error to report.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func newAPIError(status int, body []byte) *APIError {
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Title != "" {
		apiErr.StatusCode = status
		return &apiErr
	}
	return &APIError{StatusCode: status, Detail: string(body)}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("%s (%d): %s", e.Title, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether the server responded 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == 404 }

// IsDenied reports whether the server responded 403 (DENIED).
func (e *APIError) IsDenied() bool { return e.StatusCode == 403 }

// IsInvalid reports whether the server responded 400 (INVALID).
func (e *APIError) IsInvalid() bool { return e.StatusCode == 400 }

// IsDuplicate reports whether the server responded 409 (DUPLICATE).
func (e *APIError) IsDuplicate() bool { return e.StatusCode == 409 }

// IsUnauthenticated reports whether the server responded 401.
func (e *APIError) IsUnauthenticated() bool { return e.StatusCode == 401 }
