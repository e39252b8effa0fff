package source

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a project does not exist on the hosting
// service, which usually means a misdeclared project slug.
var ErrNotFound = errors.New("project not found")

// HTTPError represents an unexpected HTTP error response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// NotFoundError wraps ErrNotFound with the project that was requested.
type NotFoundError struct {
	Host    string
	Project string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: project %s not found", e.Host, e.Project)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError is returned when the hosting service rate limits requests.
type RateLimitError struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}
