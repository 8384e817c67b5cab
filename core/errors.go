package core

import "github.com/pkg/errors"

var (
	// ErrUnauthorized is returned when the caller's role or ownership does not permit an operation.
	// Its message never tells whether the resource exists.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotFound is returned when a resource does not exist or lies outside the caller's scope.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation does not apply to the current state of a resource.
	ErrInvalidState = errors.New("invalid state")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shorthand for a ValidationError carrying a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(field + ": " + msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// StorageError reports a failure of the relational store. It is always retryable from the client's point of view.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps a driver error; op describes what was being done ("inserting student").
func NewStorageError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (err *StorageError) Error() string {
	return "storage unavailable: " + err.Op + ": " + err.Err.Error()
}

func (err *StorageError) Unwrap() error { return err.Err }

// IsStorageUnavailable reports whether err, or any error it wraps, is a StorageError.
func IsStorageUnavailable(err error) bool {
	var serr *StorageError
	return errors.As(err, &serr)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
