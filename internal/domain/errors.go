// Package domain contains domain errors and value types used throughout the application.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrNoRoots          = errors.New("no roots, cannot start")
	ErrRootExists       = errors.New("root is already watched")
	ErrRootNotFound     = errors.New("root not found")
	ErrNotDirectory     = errors.New("path is not an existing directory")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrNothingPending   = errors.New("pending folder list is empty")
	ErrFolderNotFound   = errors.New("folder not found")
	ErrRootRemoved      = errors.New("watched root removed")
	ErrTrackerClosed    = errors.New("tracker is not running")
	ErrHubNotRunning    = errors.New("event hub is not running")
	ErrSubscriberClosed = errors.New("subscriber is closed")
)

// Error codes for client responses.
const (
	ErrCodeNoRoots        = "NO_ROOTS"
	ErrCodeRootExists     = "ROOT_EXISTS"
	ErrCodeRootNotFound   = "ROOT_NOT_FOUND"
	ErrCodeNotDirectory   = "NOT_DIRECTORY"
	ErrCodeNothingPending = "NOTHING_PENDING"
	ErrCodeDisposalFailed = "DISPOSAL_FAILED"
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// DisposalError represents a failed attempt to dispose of a folder.
type DisposalError struct {
	Path string
	Mode DisposalMode
	Err  error
}

func (e *DisposalError) Error() string {
	return fmt.Sprintf("dispose %s (%s): %v", e.Path, e.Mode, e.Err)
}

func (e *DisposalError) Unwrap() error {
	return e.Err
}

// NewDisposalError creates a new DisposalError.
func NewDisposalError(path string, mode DisposalMode, err error) *DisposalError {
	return &DisposalError{
		Path: path,
		Mode: mode,
		Err:  err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ErrorCode maps an error to the code reported to clients.
func ErrorCode(err error) string {
	var disposalErr *DisposalError
	switch {
	case errors.Is(err, ErrNoRoots):
		return ErrCodeNoRoots
	case errors.Is(err, ErrRootExists):
		return ErrCodeRootExists
	case errors.Is(err, ErrRootNotFound):
		return ErrCodeRootNotFound
	case errors.Is(err, ErrNotDirectory), errors.Is(err, ErrEmptyPath):
		return ErrCodeNotDirectory
	case errors.Is(err, ErrNothingPending):
		return ErrCodeNothingPending
	case errors.As(err, &disposalErr):
		return ErrCodeDisposalFailed
	default:
		return ErrCodeInternalError
	}
}
