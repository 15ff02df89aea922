package domain

import (
	"errors"
	"fmt"
)

// Code is the reason a mutation was rejected at the document boundary.
type Code string

const (
	CodeDuplicateID       Code = "duplicate_id"
	CodeNotFound          Code = "not_found"
	CodeOrphanedGroup     Code = "orphaned_group"
	CodeMalformedOverride Code = "malformed_override"
	CodeInvalidLayout     Code = "invalid_layout"
	CodeLocked            Code = "locked"
	CodeInvalidSelection  Code = "invalid_selection"
	CodeAlreadyGrouped    Code = "already_grouped"
	CodeImmutableID       Code = "immutable_id"
	CodeIndexOutOfRange   Code = "index_out_of_range"
	CodeUnknownBreakpoint Code = "unknown_breakpoint"
	CodeMissingField      Code = "missing_field"
)

// Error is an invariant violation. The page it was raised against is left
// untouched.
type Error struct {
	Code        Code   `json:"code"`
	ComponentID string `json:"componentId,omitempty"`
	Message     string `json:"message"`
}

func (e *Error) Error() string {
	if e.ComponentID != "" {
		return fmt.Sprintf("%s: %s (component %s)", e.Code, e.Message, e.ComponentID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, id, format string, args ...any) *Error {
	return &Error{Code: code, ComponentID: id, Message: fmt.Sprintf(format, args...)}
}

// Errorf builds an *Error for callers outside the package.
func Errorf(code Code, id, format string, args ...any) *Error {
	return newError(code, id, format, args...)
}

// CodeOf returns the reason code carried by err, or "" when err is not an
// *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
