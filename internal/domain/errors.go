package domain

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeParseFailure    = "PARSE_FAILURE"
	ErrCodeUnsupportedDrug = "UNSUPPORTED_DRUG"
	ErrCodeStorageFailure  = "STORAGE_FAILURE"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// Sentinel errors
var (
	ErrMalformedTable = errors.New("malformed variant table")
	ErrNotFound       = errors.New("not found")
)

// AnalysisError is a coded error carried through the pipeline so that error
// reports and API responses can expose a stable machine-readable code
type AnalysisError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates a coded analysis error
func NewAnalysisError(code, message string, err error) *AnalysisError {
	return &AnalysisError{Code: code, Message: message, Err: err}
}
