package mp

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when a query is attempted without credentials.
	ErrMissingAPIKey = errors.New("materials project API key not configured")
	// ErrUnauthorized signals a rejected API key.
	ErrUnauthorized = errors.New("materials project rejected the API key")
)

// StatusError captures a non-2xx API response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("materials project API returned %d: %s", e.Code, e.Body)
}

// retryable reports whether the request should be retried.
func retryable(code int) bool {
	return code == 429 || code >= 500
}
