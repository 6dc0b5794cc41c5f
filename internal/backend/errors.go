package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spigell/interview-coach/internal/identity"
)

// ErrNotFound matches an APIError with status 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response of the backend.
type APIError struct {
	StatusCode int
	Status     string
	// Message is the server-provided detail, empty when the body had none.
	Message string
}

func (e *APIError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Message == "" {
		return fmt.Sprintf("bad status: %s", status)
	}
	return fmt.Sprintf("bad status: %s: %s", status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case identity.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// MessageOr returns the server message or fallback when there is none.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// errorMessage extracts "detail" or "error" from an error body.
func errorMessage(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"detail", "error", "message"} {
		switch v := payload[key].(type) {
		case string:
			return strings.TrimSpace(v)
		case []interface{}:
			// validation errors come as a list of {msg, loc}
			msgs := make([]string, 0, len(v))
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					if msg, ok := m["msg"].(string); ok {
						msgs = append(msgs, msg)
					}
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return ""
}
