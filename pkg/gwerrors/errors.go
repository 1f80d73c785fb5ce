// Package gwerrors defines the typed error classes the forwarding engine and
// front controller classify against (see SPEC_FULL.md §7). Each class maps
// to a concrete struct implementing error so callers use errors.As instead
// of comparing sentinel strings.
package gwerrors

import "fmt"

// AuthError represents a missing or invalid inbound bearer/basic credential.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ModelNotFoundError is returned when no group matches the requested model.
type ModelNotFoundError struct {
	Model string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not found", e.Model)
}

// ProtocolMismatchError is returned when a group's protocol does not match
// the protocol of the endpoint path that received the request.
type ProtocolMismatchError struct {
	Group    string
	Expected Protocol
	Got      Protocol
}

// Protocol mirrors model.Protocol without importing the model package, to
// keep this package free of upward dependencies.
type Protocol string

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("group %q expects protocol %q, request used %q", e.Group, e.Expected, e.Got)
}

// RequestTooLargeError is returned when an inbound body exceeds the cap.
type RequestTooLargeError struct {
	LimitBytes int64
}

func (e *RequestTooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds maximum size of %d bytes", e.LimitBytes)
}

// UpstreamStatusError is a non-2xx HTTP response from an upstream provider.
type UpstreamStatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("provider %q returned status %d", e.Provider, e.StatusCode)
}

// UpstreamTransportError wraps a network-level failure (timeout, DNS,
// connection refused) reaching an upstream provider.
type UpstreamTransportError struct {
	Provider string
	Cause    error
}

func (e *UpstreamTransportError) Error() string {
	return fmt.Sprintf("provider %q transport error: %v", e.Provider, e.Cause)
}

func (e *UpstreamTransportError) Unwrap() error { return e.Cause }

// UpstreamStreamError is a mid-stream I/O failure after headers and some
// body bytes have already been forwarded to the client.
type UpstreamStreamError struct {
	Provider string
	Cause    error
}

func (e *UpstreamStreamError) Error() string {
	return fmt.Sprintf("provider %q stream error: %v", e.Provider, e.Cause)
}

func (e *UpstreamStreamError) Unwrap() error { return e.Cause }

// AllUpstreamsFailedError is returned to the client after every candidate in
// a group has been attempted and failed.
type AllUpstreamsFailedError struct {
	LastError string
}

func (e *AllUpstreamsFailedError) Error() string {
	return fmt.Sprintf("all providers failed: %s", e.LastError)
}
