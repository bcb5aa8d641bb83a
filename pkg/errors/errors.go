// Package errors classifies infrastructure faults. Request-level failures
// are goa service errors; see internal/services.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUpstream      ErrorCode = "UPSTREAM_ERROR"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
)

// AppError is a classified error with an optional cause
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any AppError with the same code, so errors.Is(err,
// New(ErrCodeNotFound, "")) works as a class test.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to err
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Configuration reports a missing or invalid deployment setting. These
// surface when a component is constructed, never while serving a request.
func Configuration(format string, args ...any) *AppError {
	return New(ErrCodeConfiguration, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the outermost AppError in err's chain, or ""
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }
func IsConfiguration(err error) bool { return CodeOf(err) == ErrCodeConfiguration }
func IsUpstream(err error) bool { return CodeOf(err) == ErrCodeUpstream }
