// Package apperror defines the error taxonomy shared by every layer.
//
// Three families of failure reach callers:
//   - Unauthenticated: the launch payload could not be verified (HTTP 401)
//   - Validation: caller input was rejected before any write (HTTP 400)
//   - Storage: the database failed; the whole call may be retried (HTTP 503)
//
// Each AppError carries a sentinel (for errors.Is) and a stable Kind string
// that clients can switch on without parsing the human-readable message.
package apperror

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrStorage         = errors.New("storage error")
)

// Kind is the machine-readable classification of an AppError.
type Kind string

const (
	KindMissingInput  Kind = "missing-input"
	KindBadSignature  Kind = "bad-signature"
	KindNoUser        Kind = "no-user"
	KindMalformedUser Kind = "malformed-user"
	KindExpired       Kind = "expired"

	KindEmptyTicker    Kind = "empty-ticker"
	KindBadLevelFormat Kind = "bad-level-format"
	KindBadNumber      Kind = "bad-number"
	KindBadRequest     Kind = "bad-request"

	KindNotFound Kind = "not-found"
	KindStorage  Kind = "storage"
)

type AppError struct {
	Err     error  // sentinel
	Kind    Kind   // stable machine-readable kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Ref     string // Optional: reference id logged alongside storage failures

	cause error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and, when present, the underlying cause,
// so errors.Is(err, ErrStorage) and errors.Is(err, context.Canceled) both work.
func (e *AppError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.cause}
}

// Cause returns the wrapped low-level error, or nil.
func (e *AppError) Cause() error {
	return e.cause
}

// Unauthenticated reports a launch payload that failed verification.
func Unauthenticated(kind Kind, message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Kind:    kind,
		Message: message,
	}
}

func ValidationFailed(field string, kind Kind, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Kind:    kind,
		Message: message,
		Field:   field,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Storage wraps a database failure. The message shown to clients never
// includes the cause; Ref ties the client-visible error to the server log line.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Kind:    KindStorage,
		Message: fmt.Sprintf("%s failed, please retry", op),
		Ref:     xid.New().String(),
		cause:   cause,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or "".
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
