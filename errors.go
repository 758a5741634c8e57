package quill

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrDocumentSyntax indicates a missing or garbled document marker or bad indentation.
	ErrDocumentSyntax = errors.New("document syntax error")

	// ErrScalarSyntax indicates a malformed scalar token, usually a bad escape sequence.
	ErrScalarSyntax = errors.New("scalar syntax error")

	// ErrStructureMismatch indicates the input shape does not match the expected shape.
	ErrStructureMismatch = errors.New("structure mismatch")

	// ErrUnknownVariant indicates a variant tag that names no variant of the target enum.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrMissingField indicates a required record field was absent.
	ErrMissingField = errors.New("missing field")

	// ErrNumericRange indicates a number that does not fit the target type.
	ErrNumericRange = errors.New("numeric value out of range")

	// ErrIO indicates the output sink or input source failed.
	ErrIO = errors.New("i/o failure")

	// ErrUnsupportedType indicates a Go type with no encoding, or a non-scalar mapping key.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidEnum indicates a rejected enum registration.
	ErrInvalidEnum = errors.New("invalid enum")

	// ErrInputTooLarge indicates the decoder input exceeded the configured bound.
	ErrInputTooLarge = errors.New("input too large")

	// ErrMaxDepth indicates nesting deeper than the configured limit.
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")
)

// DecodeError represents a decoding failure.
// It wraps a sentinel error with the position of the offending token.
type DecodeError struct {
	Err    error  // Underlying sentinel error (ErrDocumentSyntax, ErrMissingField, etc.)
	Line   int    // 1-based line of the offending token, 0 when unknown
	Column int    // 1-based column of the offending token, 0 when unknown
	Detail string // Human readable description
}

func (e *DecodeError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d, column %d", msg, e.Line, e.Column)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError represents an encoding failure.
type EncodeError struct {
	Err   error  // Underlying sentinel error (ErrIO, ErrUnsupportedType, etc.)
	Path  string // Location in the value being encoded, e.g. "config[2]"
	Cause error  // Original error from the sink, if any
}

func (e *EncodeError) Error() string {
	msg := e.Err.Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s (at %s)", msg, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause, so a sink error can be
// matched with errors.Is exactly as the sink returned it.
func (e *EncodeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// newDecodeError creates a DecodeError at a position.
func newDecodeError(sentinel error, line, column int, format string, args ...any) error {
	return &DecodeError{
		Err:    sentinel,
		Line:   line,
		Column: column,
		Detail: fmt.Sprintf(format, args...),
	}
}

// newEncodeError creates an EncodeError for a path in the value tree.
func newEncodeError(sentinel error, path string, cause error) error {
	return &EncodeError{
		Err:   sentinel,
		Path:  path,
		Cause: cause,
	}
}

// positioned attaches a location to a DecodeError that has none.
func positioned(err error, line, column int) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Line == 0 {
		cp := *de
		cp.Line, cp.Column = line, column
		return &cp
	}
	return err
}
