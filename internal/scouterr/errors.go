// Package scouterr defines the error kinds surfaced by the tool layer.
// Every user-visible failure carries a machine-distinguishable kind plus
// a human-readable message.
package scouterr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind string

const (
	// NoActiveWorkspace means an operation was attempted before add_workspace.
	NoActiveWorkspace Kind = "NoActiveWorkspace"
	// InvalidPath covers traversal sequences, null bytes, absolute-path
	// escapes, and sensitive file patterns.
	InvalidPath Kind = "InvalidPath"
	// FileTooLarge marks a file over the indexable size cap. Not fatal.
	FileTooLarge Kind = "FileTooLarge"
	// PatternRejected means a regex exceeded the complexity limits and was
	// refused before execution.
	PatternRejected Kind = "PatternRejected"
	// StorageUnavailable means the store could not be opened or a pooled
	// connection could not be obtained.
	StorageUnavailable Kind = "StorageUnavailable"
	// BackendTimeout means a caller-supplied deadline expired mid-query.
	BackendTimeout Kind = "BackendTimeout"
	// NotFound means the requested path is not in the index.
	NotFound Kind = "NotFound"
)

// Error is a kinded error. Msg is safe to show to callers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a kinded error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" if err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
