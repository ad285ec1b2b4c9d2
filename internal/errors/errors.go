package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Wrench error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"        // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"   // 404
	ErrTooManyRecords ErrorCode = "TOO_MANY_RECORDS" // 413
	ErrInvalidRecords ErrorCode = "INVALID_RECORDS"  // 422
	ErrCancelled      ErrorCode = "CANCELLED"        // 499
	ErrInternal       ErrorCode = "INTERNAL"         // 500
)

// WrenchError represents a structured error with code, status, and details.
type WrenchError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *WrenchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *WrenchError {
	return &WrenchError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing batch or record.
func NewNotFound(identifier string) *WrenchError {
	return &WrenchError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error when an import/export file does not exist.
func NewFileNotFound(path string) *WrenchError {
	return &WrenchError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewTooManyRecords creates a 413 error when an import exceeds the configured limit.
func NewTooManyRecords(max, actual int) *WrenchError {
	return &WrenchError{
		Code:    ErrTooManyRecords,
		Status:  413,
		Message: fmt.Sprintf("import has too many records: %d (max %d)", actual, max),
		Details: map[string]any{"max_records": max, "actual_records": actual},
	}
}

// NewInvalidRecords creates a 422 error for a records file that cannot be decoded.
// index is the offending array position, or -1 when unknown.
func NewInvalidRecords(index int, reason string) *WrenchError {
	e := &WrenchError{
		Code:    ErrInvalidRecords,
		Status:  422,
		Message: fmt.Sprintf("invalid records: %s", reason),
	}
	if index >= 0 {
		e.Message = fmt.Sprintf("invalid record at index %d: %s", index, reason)
		e.Details = map[string]any{"index": index}
	}
	return e
}

// NewCancelled creates a 499 error when a long-running operation is cancelled.
func NewCancelled(operation string) *WrenchError {
	return &WrenchError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *WrenchError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &WrenchError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a WrenchError with the given code.
func Is(err error, code ErrorCode) bool {
	var wErr *WrenchError
	if stderrors.As(err, &wErr) {
		return wErr.Code == code
	}
	return false
}
