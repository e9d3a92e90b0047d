package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Server error codes the client reacts to.
const (
	CodeRequestTooLarge    = 1002
	CodeAttachmentTooLarge = 1011
	CodeNoteNotFound       = 2001
	CodeRateLimited        = 3003
)

// ErrNotFound matches, via errors.Is, any APIError for a missing note.
var ErrNotFound = errors.New("note not found")

// APIError is a structured error returned by the HTTP API.
type APIError struct {
	Status    int
	Kind      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Kind != "" && e.Message != "":
		return e.Kind + ": " + e.Message
	case e.Message != "":
		return e.Message
	case e.Status > 0:
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return "api error"
}

func (e *APIError) Is(target error) bool {
	if e == nil || target != ErrNotFound {
		return false
	}
	return e.ErrorCode == CodeNoteNotFound || (e.Kind == "not_found" && e.Status == http.StatusNotFound)
}

// FromServer reports whether the body carried a sealnote error envelope.
// A bare status usually means SEALNOTE_API_URL points somewhere else.
func (e *APIError) FromServer() bool {
	return e != nil && e.Kind != ""
}

// Retryable reports whether resending the same request may succeed.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable
}
