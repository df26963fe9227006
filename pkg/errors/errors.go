// Package errors defines the coded errors shared by every flatmap package.
//
// A code names the kind of failure and doubles as the code of the build
// diagnostic the failure turns into. Most failures are scoped to one shape
// or one path and end up as diagnostics; [IsFatal] picks out the few that
// abort a build.
//
//	err := errors.New(errors.ErrCodeDuplicateFeatureID, "duplicate feature id %q", id)
//	if errors.IsFatal(err) {
//	    return nil, err
//	}
//
//	err = errors.Wrap(errors.ErrCodeFileNotFound, cause, "open source %s", href)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Markup errors
	ErrCodeMarkupSyntax     Code = "MARKUP_SYNTAX"
	ErrCodeMarkupConflict   Code = "MARKUP_CONFLICT"
	ErrCodeUnknownDirective Code = "UNKNOWN_DIRECTIVE"
	ErrCodeBadArity         Code = "BAD_ARITY"

	// Identity errors
	ErrCodeDuplicateFeatureID Code = "DUPLICATE_FEATURE_ID"
	ErrCodeInvalidFeatureID   Code = "INVALID_FEATURE_ID"

	// Geometry errors
	ErrCodeEmptyGeometry        Code = "EMPTY_GEOMETRY"
	ErrCodeDividerOutside       Code = "DIVIDER_OUTSIDE"
	ErrCodeRegionUnmatched      Code = "REGION_UNMATCHED"
	ErrCodeAmbiguousContainment Code = "AMBIGUOUS_CONTAINMENT"
	ErrCodeSelfLoop             Code = "SELF_LOOP"

	// Routing errors
	ErrCodeRoutingInfeasible Code = "ROUTING_INFEASIBLE"
	ErrCodeUnknownReference  Code = "UNKNOWN_REFERENCE"
	ErrCodeCyclicReference   Code = "CYCLIC_REFERENCE"
	ErrCodeNoRoute           Code = "NO_ROUTE"

	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with a formatted message and cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// outermost returns the first *Error in err's chain.
func outermost(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	e, ok := outermost(err)
	return ok && e.Code == code
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := outermost(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns err's message without its code prefix.
func UserMessage(err error) string {
	if e, ok := outermost(err); ok {
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err aborts a whole map build. Only identity and
// reference-structure violations do; everything else is scoped to one shape
// or one path.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeDuplicateFeatureID, ErrCodeCyclicReference:
		return true
	}
	return false
}
