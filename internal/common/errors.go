package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeConfig  = "CONFIG_ERROR"
	CodeDecode  = "DECODE_ERROR"
	CodeStorage = "STORAGE_ERROR"
)

// Error taxonomy. Absent fields and incomplete records are not errors.
var (
	ErrConfig  = errors.New("configuration error")
	ErrDecode  = errors.New("decode error")
	ErrStorage = errors.New("storage error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError reports a startup-fatal configuration problem.
func ConfigError(message string, cause error) error {
	if cause == nil {
		cause = ErrConfig
	} else {
		cause = fmt.Errorf("%w: %w", ErrConfig, cause)
	}
	return NewAppError(CodeConfig, message, cause)
}

// DecodeError wraps a decoder failure.
func DecodeError(message string, cause error) error {
	return NewAppError(CodeDecode, message, fmt.Errorf("%w: %w", ErrDecode, cause))
}

// StorageError wraps a storage failure on insert or fetch.
func StorageError(message string, cause error) error {
	return NewAppError(CodeStorage, message, fmt.Errorf("%w: %w", ErrStorage, cause))
}
