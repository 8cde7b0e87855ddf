package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      OperationFailed,
			message:   "findDefinition failed",
			cause:     stderrors.New("cache write refused"),
			wantParts: []string{"OPERATION_FAILED", "findDefinition failed", "cache write refused"},
		},
		{
			name:      "without cause",
			code:      ValidationFailed,
			message:   "identifier or position required",
			cause:     nil,
			wantParts: []string{"VALIDATION_FAILED", "identifier or position required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.cause)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := New(StoreFailed, "upsert failed", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	errNoCause := New(SearchFailed, "rg exited 2", nil)
	if errNoCause.Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestError_WithDetails(t *testing.T) {
	err := NewValidationError("maxResults must be positive")
	details := map[string]int{"maxResults": -1}

	result := err.WithDetails(details)

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestNewLayerError(t *testing.T) {
	cause := stderrors.New("parse failure")
	err := NewLayerError("layer2", "findDefinition", "req-42", cause)

	if err.Code != LayerFailed {
		t.Errorf("Code = %v, want %v", err.Code, LayerFailed)
	}
	if err.Operation != "findDefinition" {
		t.Errorf("Operation = %q, want findDefinition", err.Operation)
	}
	if err.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want req-42", err.RequestID)
	}
	if !strings.Contains(err.Error(), "layer2") {
		t.Errorf("Error() should name the layer, got %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through the chain")
	}
}

func TestNewOperationError(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewOperationError("rename", "req-7", cause)

	if err.Code != OperationFailed {
		t.Errorf("Code = %v, want %v", err.Code, OperationFailed)
	}
	if err.Operation != "rename" || err.RequestID != "req-7" {
		t.Errorf("context = (%q, %q), want (rename, req-7)", err.Operation, err.RequestID)
	}
}

func TestNewNotInitializedError(t *testing.T) {
	err := NewNotInitializedError("findReferences")

	if err.Code != NotInitialized {
		t.Errorf("Code = %v, want %v", err.Code, NotInitialized)
	}
	if !IsNotInitialized(err) {
		t.Error("IsNotInitialized should be true")
	}
	if IsValidation(err) {
		t.Error("IsValidation should be false for a not-initialized error")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", NewValidationError("bad request"), ValidationFailed},
		{"wrapped", fmt.Errorf("outer: %w", NewNotInitializedError("rename")), NotInitialized},
		{"plain error", stderrors.New("plain"), ""},
		{"nil-ish chain", fmt.Errorf("outer: %w", stderrors.New("inner")), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorCodesUnique(t *testing.T) {
	codes := []ErrorCode{
		ValidationFailed,
		NotInitialized,
		LayerFailed,
		OperationFailed,
		SearchFailed,
		StoreFailed,
		ConfigInvalid,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
