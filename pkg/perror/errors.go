// Package perror implements the tagged-variant error type used across the
// reconciliation core: a small, fixed set of kinds plus a wrapped cause,
// rather than ad-hoc string-based errors that conflate unrelated failure
// modes.
package perror

import (
	"errors"
	"fmt"

	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
)

// Kind is the fixed taxonomy of internal error categories.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindRPC           Kind = "rpc"
	KindKV            Kind = "kv"
	KindIO            Kind = "io"
	KindParse         Kind = "parse"
	KindRuntime       Kind = "runtime"
	KindTimeout       Kind = "timeout"
	KindInternal      Kind = "internal"
)

// Error is the tagged-variant error carried across component boundaries.
type Error struct {
	Kind      Kind
	Message   string
	TimeoutMs uint64
	Cause     error
}

func (e *Error) Error() string {
	if e.Kind == KindTimeout {
		return fmt.Sprintf("timeout error: operation timed out after %dms", e.TimeoutMs)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Configuration(message string) *Error { return newErr(KindConfiguration, message, nil) }
func RPC(message string) *Error           { return newErr(KindRPC, message, nil) }
func KV(message string) *Error            { return newErr(KindKV, message, nil) }
func IO(message string) *Error            { return newErr(KindIO, message, nil) }
func Parse(message string) *Error         { return newErr(KindParse, message, nil) }
func Runtime(message string) *Error       { return newErr(KindRuntime, message, nil) }
func Internal(message string) *Error      { return newErr(KindInternal, message, nil) }

// Timeout constructs a timeout error carrying its duration in milliseconds.
func Timeout(timeoutMs uint64) *Error {
	return &Error{Kind: KindTimeout, TimeoutMs: timeoutMs}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return newErr(kind, message, cause)
}

// As reports whether err (or something it wraps) is an *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Code maps an internal error to the wire-visible ErrorCode enumeration
// (§6). Errors that are not *Error (or nil) map to Success/InternalError.
func Code(err error) types.ErrorCode {
	if err == nil {
		return types.ErrSuccess
	}
	e, ok := As(err)
	if !ok {
		return types.ErrInternalError
	}
	switch e.Kind {
	case KindConfiguration, KindParse:
		return types.ErrInvalidRequest
	case KindKV, KindIO, KindRuntime, KindRPC, KindTimeout, KindInternal:
		return types.ErrInternalError
	default:
		return types.ErrInternalError
	}
}
