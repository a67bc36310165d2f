package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/distill/internal/layout"
)

// EvalError represents an error detected while hydrating, dehydrating or
// typing a value.
//
// Every failure of an Engine call is an *EvalError, possibly wrapped with
// the path to the failing field or item. No partial value or dataset is
// returned alongside it.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string

	// Layout is the layout being evaluated when the error occurred.
	Layout layout.Ref

	// Field is the product field or sum variant involved, if any.
	Field string

	// Details contains additional context.
	Details map[string]string
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeDataAmbiguity indicates more than one match where exactly one
	// was required.
	ErrCodeDataAmbiguity EvalErrorCode = "DATA_AMBIGUITY"

	// ErrCodeMissingData indicates no match where one was required.
	ErrCodeMissingData EvalErrorCode = "MISSING_DATA"

	// ErrCodeMissingField indicates a required product field is absent.
	ErrCodeMissingField EvalErrorCode = "MISSING_FIELD"

	// ErrCodeInvalidLiteral indicates a term does not fit a literal layout.
	ErrCodeInvalidLiteral EvalErrorCode = "INVALID_LITERAL"

	// ErrCodeNever indicates evaluation reached a Never layout.
	ErrCodeNever EvalErrorCode = "NEVER"

	// ErrCodeUnknownLayout indicates a reference missing from the registry.
	ErrCodeUnknownLayout EvalErrorCode = "UNKNOWN_LAYOUT"

	// ErrCodePartialSubstitution indicates a variable that had to be bound
	// was not.
	ErrCodePartialSubstitution EvalErrorCode = "PARTIAL_SUBSTITUTION"

	// ErrCodeBindingConflict indicates dehydration bound one variable to
	// two different terms.
	ErrCodeBindingConflict EvalErrorCode = "BINDING_CONFLICT"

	// ErrCodeInvalidValue indicates a value that does not fit its layout.
	ErrCodeInvalidValue EvalErrorCode = "INVALID_VALUE"

	// ErrCodeInvalidInput indicates top-level inputs that do not fit the
	// layout's input arity.
	ErrCodeInvalidInput EvalErrorCode = "INVALID_INPUT"

	// ErrCodeListCycle indicates an ordered list revisiting a node.
	ErrCodeListCycle EvalErrorCode = "LIST_CYCLE"

	// ErrCodeDepthExceeded indicates nesting deeper than the configured
	// maximum.
	ErrCodeDepthExceeded EvalErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeDataset indicates the dataset failed a lookup.
	ErrCodeDataset EvalErrorCode = "DATASET"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Layout != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s (layout=%s, field=%s)", e.Code, e.Message, e.Layout, e.Field)
	}
	if e.Layout != "" {
		return fmt.Sprintf("%s: %s (layout=%s)", e.Code, e.Message, e.Layout)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of the first *EvalError in err's chain, or the
// empty code.
func CodeOf(err error) EvalErrorCode {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsAmbiguity returns true if the error is a data ambiguity error.
// Uses errors.As to handle wrapped errors.
func IsAmbiguity(err error) bool {
	return CodeOf(err) == ErrCodeDataAmbiguity
}

// IsMissingData returns true if the error is a missing data error.
func IsMissingData(err error) bool {
	return CodeOf(err) == ErrCodeMissingData
}

// IsMissingField returns true if the error is a missing required field
// error.
func IsMissingField(err error) bool {
	return CodeOf(err) == ErrCodeMissingField
}

// isMismatch reports whether err means the data simply does not have the
// shape a layout describes. A sum treats such errors in a variant as "this
// variant does not match" rather than failing.
func isMismatch(err error) bool {
	switch CodeOf(err) {
	case ErrCodeMissingData, ErrCodeMissingField, ErrCodeInvalidLiteral,
		ErrCodeNever, ErrCodeInvalidValue:
		return true
	default:
		return false
	}
}

func newError(code EvalErrorCode, ref layout.Ref, format string, args ...any) *EvalError {
	return &EvalError{Code: code, Layout: ref, Message: fmt.Sprintf(format, args...)}
}

// NewAmbiguityError creates an EvalError for a non-unique match.
func NewAmbiguityError(ref layout.Ref, field string) *EvalError {
	return &EvalError{
		Code:    ErrCodeDataAmbiguity,
		Message: "more than one match where exactly one was required",
		Layout:  ref,
		Field:   field,
	}
}

// NewMissingFieldError creates an EvalError for an absent required field.
func NewMissingFieldError(ref layout.Ref, field string) *EvalError {
	return &EvalError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("required field %q has no value", field),
		Layout:  ref,
		Field:   field,
	}
}

// NewUnknownLayoutError creates an EvalError for an unregistered layout.
func NewUnknownLayoutError(ref layout.Ref) *EvalError {
	return &EvalError{
		Code:    ErrCodeUnknownLayout,
		Message: fmt.Sprintf("layout %q is not registered", ref),
		Layout:  ref,
	}
}

// NewDepthError creates an EvalError for exceeding the nesting limit.
func NewDepthError(ref layout.Ref, maxDepth int) *EvalError {
	return &EvalError{
		Code:    ErrCodeDepthExceeded,
		Message: fmt.Sprintf("nesting exceeded max depth %d", maxDepth),
		Layout:  ref,
		Details: map[string]string{
			"max_depth": fmt.Sprintf("%d", maxDepth),
		},
	}
}
