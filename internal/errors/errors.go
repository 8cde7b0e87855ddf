package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ValidationFailed indicates a malformed or incomplete request
	ValidationFailed ErrorCode = "VALIDATION_FAILED"
	// NotInitialized indicates an operation was called before Initialize
	NotInitialized ErrorCode = "NOT_INITIALIZED"
	// LayerFailed indicates a single resolution layer failed; isolated, never surfaced
	LayerFailed ErrorCode = "LAYER_FAILED"
	// OperationFailed wraps an unexpected failure in merge/cache/orchestration
	OperationFailed ErrorCode = "OPERATION_FAILED"
	// SearchFailed indicates the fast-path search engine failed
	SearchFailed ErrorCode = "SEARCH_FAILED"
	// StoreFailed indicates the pattern store could not be read or written
	StoreFailed ErrorCode = "STORE_FAILED"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// Error is a coded error carrying enough context (operation, request id)
// to correlate a failed request with its log entries.
type Error struct {
	Code      ErrorCode   `json:"code"`
	Message   string      `json:"message"`
	Operation string      `json:"operation,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	cause     error
}

// New creates a coded error with an optional cause.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithRequest attaches operation and request id context.
func (e *Error) WithRequest(operation, requestID string) *Error {
	e.Operation = operation
	e.RequestID = requestID
	return e
}

// NewValidationError reports a malformed request. No layer work is
// attempted after one of these.
func NewValidationError(message string) *Error {
	return New(ValidationFailed, message, nil)
}

// NewNotInitializedError reports an operation invoked before Initialize.
func NewNotInitializedError(operation string) *Error {
	e := New(NotInitialized, "orchestrator is not initialized; call Initialize first", nil)
	e.Operation = operation
	return e
}

// NewLayerError reports a single layer's failure. These are logged at
// the executor boundary and degrade to empty results.
func NewLayerError(layer, operation, requestID string, cause error) *Error {
	e := New(LayerFailed, fmt.Sprintf("layer %s failed during %s", layer, operation), cause)
	e.Operation = operation
	e.RequestID = requestID
	return e
}

// NewOperationError wraps an unexpected orchestration failure; this is
// the only error shape surfaced from a failed resolution operation.
func NewOperationError(operation, requestID string, cause error) *Error {
	e := New(OperationFailed, fmt.Sprintf("%s failed", operation), cause)
	e.Operation = operation
	e.RequestID = requestID
	return e
}

// CodeOf extracts the error code from err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == ValidationFailed
}

// IsNotInitialized reports whether err is a not-initialized error.
func IsNotInitialized(err error) bool {
	return CodeOf(err) == NotInitialized
}
