// Package errors defines the two error kinds that cross the interpreter's
// API boundary: CompileError and RuntimeError. Both carry a source location,
// but are kept as distinct concrete types rather than one tagged union,
// since callers (the REPL, the CLI's exit-code logic) always need to tell
// the two apart.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// SourceLocation names where an error was detected.
type SourceLocation struct {
	Line int
}

// CompileError reports a problem found while compiling source to a Chunk.
// The compiler latches had_error on the first one and keeps parsing (see
// internal/compiler), so a single CompileError value can summarize several
// underlying messages.
type CompileError struct {
	Messages []string
}

func (e *CompileError) Error() string {
	if len(e.Messages) == 1 {
		return e.Messages[0]
	}
	return fmt.Sprintf("%d compile errors, first: %s", len(e.Messages), e.Messages[0])
}

// NewCompileError starts a CompileError with a single message.
func NewCompileError(line int, message string) *CompileError {
	return &CompileError{Messages: []string{fmt.Sprintf("[line %d] Error: %s", line, message)}}
}

// Add appends another message to an in-progress CompileError.
func (e *CompileError) Add(line int, message string) {
	e.Messages = append(e.Messages, fmt.Sprintf("[line %d] Error: %s", line, message))
}

// RuntimeError reports a problem detected while executing a Chunk. Only the
// first runtime error in an execution is ever produced; the VM stops
// stepping the moment one is returned.
type RuntimeError struct {
	Location SourceLocation
	Message  string
	cause    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Location.Line)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *RuntimeError) Unwrap() error { return e.cause }

// Format implements fmt.Formatter so that "%+v" prints a pkg/errors-style
// stack trace when the error was wrapped from an underlying Go error.
func (e *RuntimeError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.cause != nil {
		fmt.Fprintf(s, "%s\n%+v", e.Error(), e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

// NewRuntimeError builds a RuntimeError anchored at line.
func NewRuntimeError(line int, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{
		Location: SourceLocation{Line: line},
		Message:  fmt.Sprintf(format, args...),
	}
}

// WrapRuntimeError wraps an underlying Go error into a RuntimeError,
// preserving a stack trace via pkg/errors. Used by the VM's panic recovery
// to surface an interpreter-internal failure (e.g. a corrupt chunk) as a
// normal RuntimeError rather than crashing the process.
func WrapRuntimeError(line int, cause error, message string) *RuntimeError {
	return &RuntimeError{
		Location: SourceLocation{Line: line},
		Message:  message,
		cause:    pkgerrors.WithStack(cause),
	}
}

// FilesystemError reports a CLI-level failure to read a script file. It maps
// to exit code 74 and is always a wrapped Go error.
type FilesystemError struct {
	Path  string
	cause error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("can't open file %q: %v", e.Path, e.cause)
}

func (e *FilesystemError) Unwrap() error { return e.cause }

// NewFilesystemError wraps cause with pkg/errors for stack-trace context.
func NewFilesystemError(path string, cause error) *FilesystemError {
	return &FilesystemError{Path: path, cause: pkgerrors.Wrap(cause, "read script")}
}