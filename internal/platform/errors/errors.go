// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode defines the error kinds surfaced by the pipeline
// Values are stable; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeSourceNotFound is for sources that cannot be resolved or opened
	ErrorCodeSourceNotFound

	// ErrorCodeMalformedRecord is for entries missing required fields; recoverable per entry
	ErrorCodeMalformedRecord

	// ErrorCodeInvalidConfig is for rejected preprocessing configuration
	ErrorCodeInvalidConfig

	// ErrorCodeDuplicateIdentifier is for repeated record identifiers in a dataset
	ErrorCodeDuplicateIdentifier

	// ErrorCodeNotFound is for missing records or labels
	ErrorCodeNotFound

	// ErrorCodeIndexOutOfRange is for positional access outside [0, len)
	ErrorCodeIndexOutOfRange

	// ErrorCodeInvalidRatio is for split ratios that are not a partition of 1
	ErrorCodeInvalidRatio
)

var codeNames = [...]string{
	ErrorCodeUnknown:             "unknown",
	ErrorCodeSourceNotFound:      "source_not_found",
	ErrorCodeMalformedRecord:     "malformed_record",
	ErrorCodeInvalidConfig:       "invalid_config",
	ErrorCodeDuplicateIdentifier: "duplicate_identifier",
	ErrorCodeNotFound:            "not_found",
	ErrorCodeIndexOutOfRange:     "index_out_of_range",
	ErrorCodeInvalidRatio:        "invalid_ratio",
}

// String returns the snake_case name of the code
func (c ErrorCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// Recoverable reports whether the kind is handled locally rather than aborting the operation
func (c ErrorCode) Recoverable() bool { return c == ErrorCodeMalformedRecord }

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// field is optional (for validation); op is optional operation tag
// orig is the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Message returns the message without the wrapped cause
func (e *Error) Message() string { return e.msg }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return err != nil && CodeOf(err) == code }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// WithFieldChain sets field on *Error or wraps a foreign error into an *Error with Unknown code (copy-on-write)
func WithFieldChain(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return &Error{code: ErrorCodeUnknown, msg: err.Error(), field: field, orig: err}
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// SourceNotFoundf returns a source not found error
func SourceNotFoundf(format string, a ...any) error {
	return Newf(ErrorCodeSourceNotFound, format, a...)
}

// Malformedf returns a malformed record error
func Malformedf(format string, a ...any) error { return Newf(ErrorCodeMalformedRecord, format, a...) }

// InvalidConfigf returns an invalid config error
func InvalidConfigf(format string, a ...any) error { return Newf(ErrorCodeInvalidConfig, format, a...) }

// DuplicateIDf returns a duplicate identifier error
func DuplicateIDf(format string, a ...any) error {
	return Newf(ErrorCodeDuplicateIdentifier, format, a...)
}

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// OutOfRangef returns an index out of range error
func OutOfRangef(format string, a ...any) error { return Newf(ErrorCodeIndexOutOfRange, format, a...) }

// InvalidRatiof returns an invalid ratio error
func InvalidRatiof(format string, a ...any) error { return Newf(ErrorCodeInvalidRatio, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }
