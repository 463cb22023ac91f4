package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every business failure wraps exactly one of these so the
// transport layer can map kind to status with errors.Is, without ever
// parsing messages.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error carries a kind plus the human-readable reason shown to the
// caller verbatim.
type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string { return e.message }
func (e *Error) Unwrap() error { return e.kind }

func NotFoundf(format string, args ...any) error {
	return &Error{kind: ErrNotFound, message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{kind: ErrConflict, message: fmt.Sprintf(format, args...)}
}

func Unauthenticatedf(format string, args ...any) error {
	return &Error{kind: ErrUnauthenticated, message: fmt.Sprintf(format, args...)}
}
