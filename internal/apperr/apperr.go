// Package apperr classifies the errors surfaced to callers of the repository layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of an Error.
type Kind string

const (
	KindValidation     Kind = "validation"      // missing required field, malformed URL
	KindStorage        Kind = "storage"         // SQL failure, constraint violation, rollback
	KindNotInitialized Kind = "not_initialized" // storage used before initialization
	KindNotFound       Kind = "not_found"
	KindNetwork        Kind = "network"       // every offline fallback exhausted
	KindImportFormat   Kind = "import_format" // whole import file rejected
)

// Error carries a Kind, a human readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error without cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to err. A nil err yields nil.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err's chain contains an Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
