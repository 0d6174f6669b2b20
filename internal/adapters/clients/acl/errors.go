package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// ErrorResponse represents an error body returned by a remote source.
// It supports both nested format (error.message) and flat format (message).
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Message string      `json:"message,omitempty"`
}

// ErrorDetail contains error information from remote sources.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetMessage returns the error message from either nested or top-level format.
func (e *ErrorResponse) GetMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}

	return e.Message
}

// StatusError records a non-2xx answer from a remote source.
type StatusError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Retryable reports whether the remote may succeed on a later cycle.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ParseErrorResponse attempts to parse an error response body.
// Returns nil if the body is empty or cannot be parsed.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		return nil
	}

	if errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}

// MapHTTPError maps a failed exchange with a remote source to a domain.TransportError.
//
// Client-level failures (circuit open, retries exhausted) additionally wrap a
// domain.UnavailableError so callers can tell a tripped breaker apart from a
// single bad answer. Non-2xx responses wrap a *StatusError.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation string) error {
	if clientErr != nil {
		return domain.NewTransportError(serviceName, operation, mapClientError(clientErr, serviceName))
	}

	if resp == nil {
		return domain.NewTransportError(serviceName, operation, errors.New("no response received"))
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	statusErr := &StatusError{StatusCode: resp.StatusCode}
	if errResp := ParseErrorResponse(resp.Body); errResp != nil {
		statusErr.Message = errResp.GetMessage()
	}

	return domain.NewTransportError(serviceName, operation, statusErr)
}

func mapClientError(err error, serviceName string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName, "circuit breaker open")
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return fmt.Errorf("%w: %w", domain.NewUnavailableError(serviceName, "max retries exceeded"), err)
	default:
		return err
	}
}
