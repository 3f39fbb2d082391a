package types

import (
	"fmt"

	"github.com/pingcap/errors"
)

// ErrorKind is the closed sum of error categories from spec.md §7.
type ErrorKind string

const (
	KindConnect        ErrorKind = "connect"
	KindSchemaMismatch ErrorKind = "schema_mismatch"
	KindDecode         ErrorKind = "decode"
	KindEncode         ErrorKind = "encode"
	KindCursorCorrupt  ErrorKind = "cursor_corrupt"
	KindConstraint     ErrorKind = "constraint"
	KindTransient      ErrorKind = "transient"
	KindTargetReached  ErrorKind = "target_reached"
)

// Error wraps an underlying error with one of the closed ErrorKinds,
// so callers up the stack (the full-sync engine, CDC adapters) can
// branch on category without string-matching.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause implements github.com/pingcap/errors' causer interface so
// errors.Trace/errors.Cause keep working across the Error wrapper.
func (e *Error) Cause() error { return e.Err }

// NewError wraps err with kind. If err is nil, NewError returns nil.
func NewError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// As reports whether err (or something it wraps) is a *Error of the
// given kind.
func As(err error, kind ErrorKind) bool {
	var te *Error
	if !errors.As(err, &te) {
		return false
	}
	return te.Kind == kind
}

// IsTargetReached reports whether err signals the not-an-error
// "reached the target cursor" stop condition (spec.md §7).
func IsTargetReached(err error) bool { return As(err, KindTargetReached) }

// IsTransient reports whether err is retryable (spec.md §7).
func IsTransient(err error) bool { return As(err, KindTransient) }

// IsCursorCorrupt reports whether err means a stored cursor could not
// be deserialized or is of the wrong variant (spec.md §7).
func IsCursorCorrupt(err error) bool { return As(err, KindCursorCorrupt) }
