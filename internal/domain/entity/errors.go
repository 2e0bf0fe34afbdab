package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor may not perform the operation
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned when input is rejected before any write
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when the operation collides with existing state
	ErrConflict = errors.New("conflict")
)

// Error is a domain failure reported back to the actor
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound failure
func NotFound(code, format string, args ...interface{}) *Error {
	return newError(ErrNotFound, code, format, args...)
}

// Forbidden builds an ErrForbidden failure
func Forbidden(code, format string, args ...interface{}) *Error {
	return newError(ErrForbidden, code, format, args...)
}

// Validation builds an ErrValidation failure
func Validation(code, format string, args ...interface{}) *Error {
	return newError(ErrValidation, code, format, args...)
}

// Conflict builds an ErrConflict failure
func Conflict(code, format string, args ...interface{}) *Error {
	return newError(ErrConflict, code, format, args...)
}

// CodeOf returns the machine-readable code of a domain failure, or empty
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
