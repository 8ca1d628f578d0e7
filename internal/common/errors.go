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

// Error codes for the processing taxonomy. A malformed or empty normalizer
// payload is deliberately absent: that is a business outcome (Failed), not
// a system error.
const (
	CodeFetch             = "FETCH_ERROR"
	CodeExtractionTimeout = "EXTRACTION_TIMEOUT"
	CodeExtraction        = "EXTRACTION_ERROR"
	CodeNormalization     = "NORMALIZATION_ERROR"
	CodePersistence       = "PERSISTENCE_ERROR"
	CodeIntakeAttachment  = "INTAKE_ATTACHMENT_ERROR"
	CodeConfig            = "CONFIG_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func FetchError(message string, cause error) *AppError {
	return NewAppError(CodeFetch, message, cause)
}

func ExtractionTimeoutError(message string, cause error) *AppError {
	return NewAppError(CodeExtractionTimeout, message, cause)
}

func ExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, cause)
}

func NormalizationError(message string, cause error) *AppError {
	return NewAppError(CodeNormalization, message, cause)
}

func PersistenceError(message string, cause error) *AppError {
	return NewAppError(CodePersistence, message, cause)
}

func IntakeAttachmentError(message string, cause error) *AppError {
	return NewAppError(CodeIntakeAttachment, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HasCode reports whether err carries the given application error code.
func HasCode(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
