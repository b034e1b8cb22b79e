// Package errz defines the host-raised errors of the kiz virtual machine.
//
// A host error is raised by a native function or by the dispatch loop itself.
// It carries a symbolic kind, such as "TypeError", and a message. The VM
// converts host errors into ordinary error objects when they cross into user
// code, so user handlers catch them by kind exactly like thrown errors.
package errz

import (
	"errors"
	"fmt"
)

// ErrorKind is the symbolic name of an error. User code catches errors by
// this name.
type ErrorKind string

const (
	// ArgCount indicates a call with the wrong number of arguments.
	ArgCount ErrorKind = "ArgCountError"
	// Type indicates an invalid operation on a value of some type.
	Type ErrorKind = "TypeError"
	// Name indicates an undefined attribute or variable.
	Name ErrorKind = "NameError"
	// File indicates misuse of a file handle or a failed file operation.
	File ErrorKind = "FileError"
	// Future indicates a feature that is not implemented, such as an
	// unknown opcode.
	Future ErrorKind = "FutureError"
	// DictMade indicates an invalid dictionary literal.
	DictMade ErrorKind = "DictMadeError"
	// ListMade indicates an invalid list literal.
	ListMade ErrorKind = "ListMadeError"
	// ZeroDivision indicates a division or modulo by zero.
	ZeroDivision ErrorKind = "ZeroDivisionError"
	// Index indicates an out of range index.
	Index ErrorKind = "IndexError"
	// Key indicates a missing dictionary key.
	Key ErrorKind = "KeyError"
	// Import indicates a module that could not be imported.
	Import ErrorKind = "ImportError"
	// Recursion indicates the call stack depth limit was exceeded.
	Recursion ErrorKind = "RecursionError"
	// RefCount indicates a reference counting invariant violation.
	RefCount ErrorKind = "RefCountError"
	// OS indicates a failed operating system call.
	OS ErrorKind = "OSError"
	// Native is used for plain Go errors returned by native functions.
	Native ErrorKind = "NativeError"
)

// String returns the kind name.
func (k ErrorKind) String() string {
	return string(k)
}

// Error is a host-raised error.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause wraps the error with a cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates a host error with the given kind and message.
func New(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates a host error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap converts a Go error into a host error of the given kind. Host errors
// pass through unchanged.
func Wrap(kind ErrorKind, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Message: err.Error(), Cause: err}
}

// KindOf returns the kind of a host error, or Native for any other error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Native
}
