package usage

import (
	"errors"
	"fmt"
)

// FetchError is returned for any failure while fetching a usage report:
// network errors, timeouts, non-success status codes, and malformed
// payloads. StatusCode is zero when no HTTP response was received.
type FetchError struct {
	// StatusCode is the HTTP status of the failed response, if any.
	StatusCode int

	// Message describes the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("usage fetch failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("usage fetch failed: %s", e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError reports whether err is (or wraps) a FetchError.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
