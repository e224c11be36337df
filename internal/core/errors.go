package core

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of failure
type ErrorCode string

const (
	CodePackageNotFound         ErrorCode = "PACKAGE_NOT_FOUND"
	CodeUnsatisfiableDependency ErrorCode = "UNSATISFIABLE_DEPENDENCY"
	CodeProtectionViolation     ErrorCode = "PROTECTION_VIOLATION"
	CodeBackendFailure          ErrorCode = "BACKEND_FAILURE"
	CodeModeHookFailure         ErrorCode = "MODE_HOOK_FAILURE"
	CodeConfirmationRequired    ErrorCode = "CONFIRMATION_REQUIRED"
	CodeInvalidInput            ErrorCode = "INVALID_INPUT"
	CodeConfig                  ErrorCode = "CONFIG"
)

// Error is a coded error carrying optional details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key/value pair and returns the same error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewError creates a coded error
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a coded error with a formatted message
func NewErrorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with a code. A nil err yields nil.
func WrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Wrapped: err}
}

// WrapErrorf wraps err with a code and a formatted message
func WrapErrorf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// IsCode reports whether any error in the chain carries code
func IsCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

// CodeOf returns the outermost code in the chain, or "" for plain errors
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NotFound builds the PackageNotFound error for name
func NotFound(name string) *Error {
	return NewErrorf(CodePackageNotFound, "package %s not found", name).WithDetail("package", name)
}

// ExitCode maps an error returned by the CLI to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case IsCode(err, CodeConfirmationRequired):
		return ExitConfirmationRequired
	default:
		return ExitFailure
	}
}
