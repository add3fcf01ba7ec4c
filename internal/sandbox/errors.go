package sandbox

import (
	"errors"
	"fmt"
)

// Kind classifies sandbox and execution failures.
type Kind string

const (
	KindPathEscape        Kind = "path_escape"
	KindNotFound          Kind = "not_found"
	KindNotAFile          Kind = "not_a_file"
	KindNotADirectory     Kind = "not_a_directory"
	KindInvalidAction     Kind = "invalid_action"
	KindInvalidArgument   Kind = "invalid_argument"
	KindDirectoryCreation Kind = "directory_creation"
	KindWrite             Kind = "write"
	KindRead              Kind = "read"
	KindSafetyBlocked     Kind = "safety_blocked"
	KindTimeout           Kind = "timeout"
	KindAutoDetectFailed  Kind = "auto_detect_failed"
	KindExecution         Kind = "execution"
)

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return string(k)
}

// Error is the single error type returned by sandbox, runner and tool code.
type Error struct {
	Kind Kind
	Path string // caller-supplied path or command, as given
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Kind so callers can write errors.Is(err, sandbox.KindTimeout).
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind Kind, path string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind carried by err, or "" when err is not a sandbox error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
