package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized is matched by APIErrors carrying a 401 status.
var ErrUnauthorized = errors.New("backend: unauthorized")

// ErrNotFound is matched by APIErrors carrying a 404 status.
var ErrNotFound = errors.New("backend: not found")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string // server-provided "message" or "error", may be empty
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s: %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// Is lets callers match status classes with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// UserMessage returns the server's message for err when one was sent,
// otherwise fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

// errorBody is the shape of backend error payloads.
type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func (b errorBody) text() string {
	if b.Error != "" {
		return b.Error
	}
	if b.Message != "" {
		return b.Message
	}
	for _, msgs := range b.Errors {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}
