package domain

import (
	"errors"
	"fmt"
)

// Every domain error unwraps to one of these kinds. Adapters decide what a
// kind means to their user: an HTTP status, a status line, a log level.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrTransport   = errors.New("transport failure")
	ErrDecode      = errors.New("decode failure")
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError reports a missing storage key or record.
type NotFoundError struct {
	Entity string
	Key    string
}

func NewNotFoundError(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports an operation refused because of current state,
// such as a second sync cycle while one is in flight.
type ConflictError struct {
	Entity string
	Reason string
}

func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ValidationError reports rejected input. Field is empty when the input as
// a whole is wrong.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return e.Field + " " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransportError reports a failed exchange with the remote quote server.
// Cause stays reachable through errors.Is and errors.As.
type TransportError struct {
	Source    string
	Operation string
	Cause     error
}

func NewTransportError(source, operation string, cause error) error {
	return &TransportError{Source: source, Operation: operation, Cause: cause}
}

func (e *TransportError) Error() string {
	return withCause(fmt.Sprintf("%s %s failed", e.Source, e.Operation), e.Cause)
}

func (e *TransportError) Unwrap() []error { return kindAndCause(ErrTransport, e.Cause) }

// DecodeError reports a payload that is not the JSON it should be.
type DecodeError struct {
	Subject string
	Cause   error
}

func NewDecodeError(subject string, cause error) error {
	return &DecodeError{Subject: subject, Cause: cause}
}

func (e *DecodeError) Error() string {
	return withCause("cannot decode "+e.Subject, e.Cause)
}

func (e *DecodeError) Unwrap() []error { return kindAndCause(ErrDecode, e.Cause) }

// UnavailableError reports a dependency refusing work, such as the remote
// while its circuit breaker is open.
type UnavailableError struct {
	Service string
	Reason  string
}

func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return e.Service + " unavailable"
	}

	return fmt.Sprintf("%s unavailable: %s", e.Service, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsTransport(err error) bool   { return errors.Is(err, ErrTransport) }
func IsDecode(err error) bool      { return errors.Is(err, ErrDecode) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

func withCause(msg string, cause error) string {
	if cause == nil {
		return msg
	}

	return msg + ": " + cause.Error()
}

func kindAndCause(kind, cause error) []error {
	if cause == nil {
		return []error{kind}
	}

	return []error{kind, cause}
}
