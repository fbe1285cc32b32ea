package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess           = 0   // Indicates successful execution.
	ExitErrorGeneric      = 1   // Indicates a generic error.
	ExitErrorAccessDenied = 2   // Indicates the OS memory facility is unreachable.
	ExitErrorArchive      = 3   // Indicates an export or import failure.
	ExitErrorConfig       = 4   // Indicates a configuration error.
	ExitErrorCanceled     = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError reports a threshold or sizing value outside its sane range.
// It is returned synchronously by constructors and Start methods and is never
// produced mid-stream by the sampling loop.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for %q: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, a ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, a...)}
}

// AccessDeniedError means the OS memory-info facility could not be reached
// when sampling was requested. It is fatal to Start but recoverable by retry.
type AccessDeniedError struct {
	// Facility names the OS interface that failed (e.g. "process memory").
	Facility string
	// Cause is the underlying probe failure.
	Cause error
}

// Error returns a formatted message describing the denied facility.
func (e AccessDeniedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("access denied: %s unavailable", e.Facility)
	}
	return fmt.Sprintf("access denied: %s unavailable: %v", e.Facility, e.Cause)
}

// Unwrap returns the underlying probe failure.
func (e AccessDeniedError) Unwrap() error { return e.Cause }

// MonitoringError describes a single failed capture. The sampler logs it and
// records a zero-filled snapshot; it never reaches analysis callers.
type MonitoringError struct {
	// Operation is the read that failed ("system memory", "process memory").
	Operation string
	// Cause is the underlying error.
	Cause error
}

// Error returns a formatted message describing the failed capture.
func (e MonitoringError) Error() string {
	return fmt.Sprintf("monitoring failed: %s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying capture failure.
func (e MonitoringError) Unwrap() error { return e.Cause }

// ArchiveError wraps a failure to export or import captured history.
type ArchiveError struct {
	// Path is the document location.
	Path string
	// Op is "export" or "import".
	Op string
	// Cause is the underlying error.
	Cause error
}

// Error returns a formatted message describing the archive failure.
func (e ArchiveError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying archive failure.
func (e ArchiveError) Unwrap() error { return e.Cause }

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Returns nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCodeFor maps an error returned by the application layer to a process
// exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		configErr     ConfigError
		validationErr ValidationError
		deniedErr     AccessDeniedError
		archiveErr    ArchiveError
	)
	switch {
	case IsContextError(err):
		return ExitErrorCanceled
	case errors.As(err, &deniedErr):
		return ExitErrorAccessDenied
	case errors.As(err, &configErr), errors.As(err, &validationErr):
		return ExitErrorConfig
	case errors.As(err, &archiveErr):
		return ExitErrorArchive
	default:
		return ExitErrorGeneric
	}
}
