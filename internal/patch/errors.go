package patch

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPointer   = errors.New("invalid json pointer")
	ErrPathNotFound     = errors.New("path not found")
	ErrIndexOutOfRange  = errors.New("array index out of range")
	ErrNotContainer     = errors.New("path does not address an object or array")
	ErrMoveIntoChild    = errors.New("cannot move a value into one of its children")
	ErrTestFailed       = errors.New("test failed")
	ErrUnknownOperation = errors.New("unknown component operation")
)

// ValidationError reports a malformed patch entry. A patch that fails
// validation is never applied.
type ValidationError struct {
	Index  int
	Op     Operation
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("patch entry %d (%s %q): %s", e.Index, e.Op.Op, e.Op.Path, e.Reason)
}

// ApplyError reports the entry that stopped an application. Entries before
// Index were applied to a scratch copy only.
type ApplyError struct {
	Index int
	Op    Operation
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply patch entry %d (%s %q): %v", e.Index, e.Op.Op, e.Op.Path, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
