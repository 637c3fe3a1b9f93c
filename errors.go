package zawk

import "fmt"

// ParseError represents a syntax error in program source.
// Programs with parse errors exit with status 2.
type ParseError struct {
	Line    int    // 1-based line number
	Column  int    // 1-based column number
	Message string // Error description
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// TypeError represents a compile-time semantic error: a name used as
// both scalar and array, a builtin called with the wrong arity or
// argument kinds, or shared state that cannot be parallelized.
// Programs with type errors exit with status 2.
type TypeError struct {
	Line    int
	Column  int
	Message string
}

func (e *TypeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("type error at %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("type error: %s", e.Message)
}

// RuntimeError represents a fatal error during execution: integer
// division by zero, a regex that fails to compile at first use, or
// unrecoverable I/O. Programs with runtime errors exit with status 1.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %s", e.Message)
}

// ExitError represents normal termination via exit with a status code;
// it is not an error condition.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// IsExitError reports whether err is an ExitError and returns its code.
func IsExitError(err error) (int, bool) {
	if e, ok := err.(*ExitError); ok {
		return e.Code, true
	}
	return 0, false
}
