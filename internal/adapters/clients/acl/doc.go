// Package acl is the anti-corruption layer between remote quote sources and
// the domain.
//
// Remote DTOs never leave this package. Every adapter:
//
//   - decodes the remote payload into unexported DTOs ([DecodeResponse])
//   - translates DTOs into domain.Quote values, dropping remote-only fields
//   - maps failures onto the domain taxonomy ([MapHTTPError])
//
// # Error Mapping
//
//   - network failure, non-2xx status → [domain.ErrTransport]
//   - circuit open, retries exhausted → [domain.ErrTransport] wrapping [domain.ErrUnavailable]
//   - malformed JSON → [domain.ErrDecode]
//
// The sync engine treats all of these as recoverable: a failed fetch yields an
// empty snapshot and the cycle continues.
package acl
