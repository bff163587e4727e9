package apperr

import "errors"

// Kind groups error codes by how a caller should react to them.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindState        Kind = "state"
	KindDuplicate    Kind = "duplicate"
	KindExhaustion   Kind = "exhaustion"
	KindArithmetic   Kind = "arithmetic"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
)

// Code is a stable, machine-readable error identifier.
type Code string

// Error is a rejected operation. Two errors match under errors.Is when their
// codes are equal, so wrapped copies still compare against the sentinels.
type Error struct {
	Code    Code
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a sentinel-style error.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

// Wrap returns a copy of sentinel that carries cause.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{
		Code:    sentinel.Code,
		Kind:    sentinel.Kind,
		Message: sentinel.Message,
		Cause:   cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
