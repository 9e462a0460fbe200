package model

import "fmt"

// InvariantError is raised (as a panic) when the engine finds the tree, the
// tracking registry or the undo log in a state that should be impossible:
// an iteration cap was exceeded, a run was not found for an offset, a
// position points at a detached node. It aborts the operation in progress.
type InvariantError struct {
	Op  string
	Msg string
	Err error
}

func (e *InvariantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invariant violated: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: invariant violated: %s", e.Op, e.Msg)
}

// Unwrap returns the error that caused the violation, if any.
func (e *InvariantError) Unwrap() error { return e.Err }

// MisuseError is raised (as a panic) when a caller uses the API in a way
// that can never be valid, such as splicing characters into an element or
// untracking a position that was never tracked.
type MisuseError struct {
	Op  string
	Msg string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// Invariantf panics with an *InvariantError.
func Invariantf(op, format string, args ...interface{}) {
	panic(&InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// Misusef panics with a *MisuseError.
func Misusef(op, format string, args ...interface{}) {
	panic(&MisuseError{Op: op, Msg: fmt.Sprintf(format, args...)})
}
