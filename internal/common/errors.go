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

// Error classes. Everything except ErrLedgerWrite is local to one document
// or one OCR attempt and never aborts a batch.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDocumentOpen = errors.New("document cannot be opened")
	ErrRasterize    = errors.New("rasterization failed")
	ErrRecognize    = errors.New("text recognition failed")
	ErrNoText       = errors.New("no page produced any text")
	ErrArchive      = errors.New("archive failed")
	ErrLedgerWrite  = errors.New("ledger write failed")
	ErrPostProcess  = errors.New("ledger post-processing failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
