// Package errors provides error types and classification for transfer operations.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
)

// Error represents a transfer operation error with context about what failed.
// It wraps the underlying error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "copy", "probe", "plan")
	Op string

	// Container is the object-storage container name (if applicable)
	Container string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Container != "" && e.Key != "" {
		return fmt.Sprintf("objsync.%s %s/%s: %v", e.Op, e.Container, e.Key, e.Err)
	}
	if e.Container != "" {
		return fmt.Sprintf("objsync.%s container %s: %v", e.Op, e.Container, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("objsync.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("objsync.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithContainer adds container context to an existing error.
func (e *Error) WithContainer(container string) *Error {
	e.Container = container
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewContainerError creates a new Error with container context.
func NewContainerError(op, container string, err error) *Error {
	return &Error{
		Op:        op,
		Container: container,
		Err:       err,
	}
}

// NewObjectError creates a new Error with container and key context.
func NewObjectError(op, container, key string, err error) *Error {
	return &Error{
		Op:        op,
		Container: container,
		Key:       key,
		Err:       err,
	}
}

// Kind categorizes terminal transfer errors. Kinds drive the retry
// decision and are reported on failed outcomes.
type Kind string

// Recognized error kinds.
const (
	// KindNone indicates the absence of an error.
	KindNone Kind = ""

	// KindConfiguration indicates missing or out-of-range configuration.
	// Fatal: raised before any transfer starts, never retried.
	KindConfiguration Kind = "configuration"

	// KindCapabilityUnavailable indicates the preferred transfer backend
	// is not installed or reachable. Triggers fallback in auto mode.
	KindCapabilityUnavailable Kind = "capability_unavailable"

	// KindPermissionDenied indicates source or destination access was
	// rejected. Never retried.
	KindPermissionDenied Kind = "permission_denied"

	// KindTransient indicates a network, timeout, or throttling failure
	// that is eligible for retry.
	KindTransient Kind = "transient"

	// KindCancelled indicates the deadline expired or the sync was
	// cancelled. Terminal, never retried.
	KindCancelled Kind = "cancelled"
)

// Sentinel errors for the recognized error kinds.
// These can be used with errors.Is() for error checking.
var (
	// ErrConfiguration indicates invalid sync configuration
	ErrConfiguration = errors.New("objsync: invalid configuration")

	// ErrCapabilityUnavailable indicates the direct-transfer backend is unavailable
	ErrCapabilityUnavailable = errors.New("objsync: transfer backend unavailable")

	// ErrPermissionDenied indicates access to source or destination was denied
	ErrPermissionDenied = errors.New("objsync: permission denied")

	// ErrTransient indicates a transient transfer failure
	ErrTransient = errors.New("objsync: transient transfer failure")

	// ErrCancelled indicates the sync was cancelled before completion
	ErrCancelled = errors.New("objsync: cancelled")
)

// sentinelKinds maps each sentinel error to its kind.
var sentinelKinds = map[error]Kind{
	ErrConfiguration:         KindConfiguration,
	ErrCapabilityUnavailable: KindCapabilityUnavailable,
	ErrPermissionDenied:      KindPermissionDenied,
	ErrTransient:             KindTransient,
	ErrCancelled:             KindCancelled,
}

// Classify maps an arbitrary error to an error kind.
//
// Sentinels classify as themselves, context expiry classifies as cancelled,
// and AWS API errors are classified by error code: access failures map to
// permission denied, throttling and server faults map to transient. Anything
// unrecognized classifies as transient so the bounded retry budget decides
// its fate rather than a premature permanent failure.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	for sentinel, kind := range sentinelKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied",
			"AccessDeniedException",
			"InvalidAccessKeyId",
			"SignatureDoesNotMatch",
			"ExpiredToken",
			"Forbidden":
			return KindPermissionDenied
		case "ThrottlingException",
			"Throttling",
			"SlowDown",
			"RequestLimitExceeded",
			"TooManyRequestsException",
			"RequestTimeout",
			"ServiceUnavailable",
			"InternalError":
			return KindTransient
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return KindTransient
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	return KindTransient
}

// IsRetryable reports whether an error kind is eligible for retry.
func (k Kind) IsRetryable() bool {
	return k == KindTransient
}

// Sentinel returns the sentinel error for a kind, or nil for KindNone.
func (k Kind) Sentinel() error {
	for sentinel, kind := range sentinelKinds {
		if kind == k {
			return sentinel
		}
	}
	return nil
}

// IsPermissionDenied checks if an error indicates rejected access.
func IsPermissionDenied(err error) bool {
	return Classify(err) == KindPermissionDenied
}

// IsCancelled checks if an error indicates cancellation or deadline expiry.
func IsCancelled(err error) bool {
	return Classify(err) == KindCancelled
}

// IsConfiguration checks if an error indicates invalid configuration.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
