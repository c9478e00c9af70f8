package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors for propagation policy: validation, forbidden
// and precondition errors surface to the caller verbatim and never mutate
// state; conflicts are retryable; fatal errors halt the transaction.
type Kind int

const (
	KindValidation Kind = iota
	KindForbidden
	KindPrecondition
	KindConflict
	KindFatal
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindPrecondition:
		return "precondition"
	case KindConflict:
		return "conflict"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Precondition codes. The set is closed; callers match on these.
const (
	CodeNotYourTurn         = "NotYourTurn"
	CodeWrongState          = "WrongState"
	CodeNoActiveGame        = "NoActiveGame"
	CodeTableFull           = "TableFull"
	CodeInsufficientBalance = "InsufficientBalance"
	CodeCardAlreadyDealt    = "CardAlreadyDealt"
	CodeInvalidRaise        = "InvalidRaise"
	CodeInsufficientChips   = "InsufficientChips"
	CodeCannotLeaveMidHand  = "CannotLeaveMidHand"
	CodeBusy                = "Busy"
)

// Error is the engine error type carrying a kind and, for preconditions, a
// stable code.
type Error struct {
	Kind Kind
	Code string
	msg  string
	err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.msg)
	}
	return e.msg
}

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error {
	return e.err
}

// Validationf creates a validation error (malformed input)
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// Forbiddenf creates an authority error
func Forbiddenf(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Code: "Forbidden", msg: fmt.Sprintf(format, args...)}
}

// Preconditionf creates a precondition error with a stable code
func Preconditionf(code, format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Code: code, msg: fmt.Sprintf(format, args...)}
}

// Conflictf creates a retryable conflict error wrapping its cause
func Conflictf(err error, format string, args ...any) error {
	return &Error{Kind: KindConflict, msg: fmt.Sprintf(format, args...), err: err}
}

// Fatalf creates a fatal error (storage corruption, broken invariant)
func Fatalf(format string, args ...any) error {
	return &Error{Kind: KindFatal, msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of an engine error, or KindFatal for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// CodeOf returns the precondition code of an error, or ""
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConflict reports whether err is retryable
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
