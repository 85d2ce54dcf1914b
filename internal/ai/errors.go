package ai

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable   = errors.New("ai provider not configured")
	ErrEmptyResponse = errors.New("ai response is empty")
)

// APIError carries the upstream HTTP status so callers can decide
// whether a failed call is worth retrying.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
