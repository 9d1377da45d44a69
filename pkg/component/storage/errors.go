package storage

import (
	"errors"
	"fmt"

	errno "github.com/kart-io/mongokit/pkg/errors"
)

var (
	// ErrNotConnected is returned by clients used before connecting or after Close.
	ErrNotConnected = &StorageError{
		Code:    "NOT_CONNECTED",
		Message: "storage client is not connected",
	}

	// ErrConnectionFailed wraps connect and initial ping failures.
	ErrConnectionFailed = &StorageError{
		Code:    "CONNECTION_FAILED",
		Message: "failed to connect to storage backend",
	}

	ErrTimeout = &StorageError{
		Code:    "TIMEOUT",
		Message: "storage operation timed out",
	}

	// ErrInvalidConfig is returned by option validation and Manager.Register.
	ErrInvalidConfig = &StorageError{
		Code:    "INVALID_CONFIG",
		Message: "invalid storage configuration",
	}

	ErrClientNotFound = &StorageError{
		Code:    "CLIENT_NOT_FOUND",
		Message: "storage client not found",
	}

	ErrClientAlreadyExists = &StorageError{
		Code:    "CLIENT_ALREADY_EXISTS",
		Message: "storage client already exists",
	}
)

// StorageError is a storage failure identified by a machine readable code.
// Errors compare by code under errors.Is.
type StorageError struct {
	Code    string
	Message string
	Cause   error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a StorageError with the same code.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy with msg as the message.
func (e *StorageError) WithMessage(msg string) *StorageError {
	return &StorageError{Code: e.Code, Message: msg, Cause: e.Cause}
}

// WithCause returns a copy wrapping cause.
func (e *StorageError) WithCause(cause error) *StorageError {
	return &StorageError{Code: e.Code, Message: e.Message, Cause: cause}
}

// Errno maps the error onto the shared error code table so HTTP handlers
// can render it with errors.FromError.
func (e *StorageError) Errno() *errno.Errno {
	var base *errno.Errno
	switch e.Code {
	case ErrNotConnected.Code, ErrConnectionFailed.Code:
		base = errno.ErrDBConnection
	case ErrInvalidConfig.Code:
		base = errno.ErrConfigInvalid
	case ErrClientNotFound.Code:
		base = errno.ErrNotFound
	case ErrClientAlreadyExists.Code:
		base = errno.ErrConflict
	default:
		base = errno.ErrDatabase
	}
	return base.WithMessage(e.Message).WithCause(e.Cause)
}

// GetStorageError extracts a StorageError from an error chain.
func GetStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
