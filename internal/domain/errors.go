// Package domain defines core types, interfaces, and errors for the sharing server.
package domain

import "fmt"

// NotFoundError indicates a catalog entity or backing object was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnavailableError indicates the object store could not be reached or
// could not be initialized.
type UnavailableError struct {
	Message string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// StorageError is an object store failure other than "key absent" or
// connectivity. Code carries the store's error code (e.g. "AccessDenied").
type StorageError struct {
	Code    string
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnavailable creates an UnavailableError wrapping err.
func ErrUnavailable(err error, format string, args ...interface{}) *UnavailableError {
	return &UnavailableError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrStorage creates a StorageError carrying the store's error code.
func ErrStorage(code string, err error, format string, args ...interface{}) *StorageError {
	return &StorageError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}
