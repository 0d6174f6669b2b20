package clients

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen means the breaker refused the call without contacting the remote.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrMaxRetriesExceeded wraps the error of the last attempt.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// retryableStatusError is the failure of an attempt answered with a status
// worth retrying. The body has already been drained.
type retryableStatusError struct {
	status int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("remote answered %d", e.status)
}
