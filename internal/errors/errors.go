// Package errors defines the error taxonomy used across the pipeline.
// Callers decide retry/skip/abort behavior from the Kind, never by string
// matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an error for propagation policy decisions.
type Kind int

const (
	// KindValidation - input violates a documented constraint. Surface to
	// the caller; never retry.
	KindValidation Kind = iota
	// KindNotFound - requested entity absent. Read APIs surface it,
	// discovery logs and skips.
	KindNotFound
	// KindConflict - unique-constraint violation during create. Resolve by
	// re-looking-up via the same canonical key and taking the enrich path.
	KindConflict
	// KindRateLimit - external API throttled. Sleep until reset, retry
	// with backoff.
	KindRateLimit
	// KindTransient - timeout or connection reset. Retry with exponential
	// backoff, bounded attempts.
	KindTransient
	// KindFatal - unrecoverable (missing credentials, schema missing).
	// Abort the job and exit non-zero.
	KindFatal
	// KindInternal - unexpected internal state.
	KindInternal
)

// Error is a structured error with a kind and optional context values.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so callers can use errors.Is with kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext attaches a key/value pair for logging.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// DetailedString renders the error with its context for operator logs.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", kindString(e.Kind), e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	for k, v := range e.Context {
		sb.WriteString(fmt.Sprintf("\n  %s: %v", k, v))
	}
	return sb.String()
}

func kindString(k Kind) string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimit:
		return "RATE_LIMIT"
	case KindTransient:
		return "TRANSIENT"
	case KindFatal:
		return "FATAL"
	default:
		return "INTERNAL"
	}
}

// New creates a new error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap wraps an existing error with a kind. Returns nil for nil causes.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// Convenience constructors.

func Validationf(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

// RateLimited marks an error as throttling. A nil cause still produces a
// valid error; the kind is the signal, not the cause.
func RateLimited(err error, message string) *Error {
	if err == nil {
		return New(KindRateLimit, message)
	}
	return Wrap(err, KindRateLimit, message)
}

// Transient marks an error as retryable I/O trouble. A nil cause still
// produces a valid error.
func Transient(err error, message string) *Error {
	if err == nil {
		return New(KindTransient, message)
	}
	return Wrap(err, KindTransient, message)
}

func Fatalf(format string, args ...interface{}) *Error {
	return New(KindFatal, fmt.Sprintf(format, args...))
}

func Internalf(format string, args ...interface{}) *Error {
	return New(KindInternal, fmt.Sprintf(format, args...))
}

// KindOf extracts the kind from any error, defaulting to KindInternal.
// A typed-nil *Error in the chain counts as internal, not a crash.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return KindInternal
}

// IsFatal reports whether the error should abort the job.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == KindFatal
}

// IsRetryable reports whether the propagation policy allows a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindRateLimit, KindTransient:
		return true
	}
	return false
}

// IsNotFound reports whether the error is an absence, not a failure.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsConflict reports whether the error is a unique-key conflict.
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}
