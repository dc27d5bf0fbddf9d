// Package bridgeerr defines the bridge's error taxonomy (spec §7). Each
// error kind is a distinct type so callers can branch with errors.As
// instead of string matching. The kinds that report an underlying failure
// (ValidationError, ProtocolEncode, ProtocolDecode, RpcTransport,
// ConnectionError) carry it as an optional Cause, the way the teacher's
// ValidationError/ValidationErrors pair does in pkg/config/validate.go;
// the other kinds carry no cause.
package bridgeerr

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input: a bad identifier, URL, or JSON
// shape. It is local to the caller and is never retried.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// NewValidationError builds a ValidationError for the named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValidationErrors aggregates ValidationError instances, mirroring the
// teacher's ValidationErrors slice type.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors:\n  - " + strings.Join(msgs, "\n  - ")
}

// Unauthorized reports a caller principal rejected by the authorization
// core or by the platform.
type Unauthorized struct {
	Principal string
	Reason    string
}

func (e *Unauthorized) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unauthorized: principal %s", e.Principal)
	}
	return fmt.Sprintf("unauthorized: principal %s: %s", e.Principal, e.Reason)
}

// NotFound reports an unknown tool, timer id, or other keyed resource.
type NotFound struct {
	Kind string
	Key  string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ProtocolEncode reports a wire-codec encode step that could not complete.
// Fatal for the call in progress.
type ProtocolEncode struct {
	Cause error
}

func (e *ProtocolEncode) Error() string { return fmt.Sprintf("protocol encode: %v", e.Cause) }
func (e *ProtocolEncode) Unwrap() error { return e.Cause }

// ProtocolDecode reports a wire-codec decode step that could not complete.
// Fatal for the call in progress.
type ProtocolDecode struct {
	Cause error
}

func (e *ProtocolDecode) Error() string { return fmt.Sprintf("protocol decode: %v", e.Cause) }
func (e *ProtocolDecode) Unwrap() error { return e.Cause }

// RpcTransport reports a network failure, TLS failure, or DNS failure.
// Retry eligible.
type RpcTransport struct {
	Cause error
}

func (e *RpcTransport) Error() string { return fmt.Sprintf("rpc transport: %v", e.Cause) }
func (e *RpcTransport) Unwrap() error { return e.Cause }

// Timeout reports a deadline exceeded. Retry eligible.
type Timeout struct {
	Op string
}

func (e *Timeout) Error() string { return fmt.Sprintf("timeout: %s", e.Op) }

// HttpStatus reports a non-2xx HTTP outcall response. Not retried.
type HttpStatus struct {
	Code int
	Body string
}

func (e *HttpStatus) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// ResourceExhausted reports a full timer registry or an oversized response.
type ResourceExhausted struct {
	Resource string
	Limit    int
}

func (e *ResourceExhausted) Error() string {
	return fmt.Sprintf("resource exhausted: %s (limit %d)", e.Resource, e.Limit)
}

// ConnectionError reports that Connect could not bring up a usable
// canister client: root key fetch, or the first refresh_tools call,
// failed. The bridge's state does not advance when this is returned.
type ConnectionError struct {
	Step  string
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to canister: %s: %v", e.Step, e.Cause)
}
func (e *ConnectionError) Unwrap() error { return e.Cause }

// State reports an operation attempted from the wrong lifecycle state
// (e.g. calling Serve before Connect).
type State struct {
	Want string
	Got  string
}

func (e *State) Error() string {
	return fmt.Sprintf("invalid state: want %s, got %s", e.Want, e.Got)
}

// IsRetryable reports whether err is one of the retry-eligible kinds
// (RpcTransport, Timeout), matching the HTTP Outcall Wrapper's retry
// predicate from spec §4.K.
func IsRetryable(err error) bool {
	var rpc *RpcTransport
	var to *Timeout
	return errors.As(err, &rpc) || errors.As(err, &to)
}
