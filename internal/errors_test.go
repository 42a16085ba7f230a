package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestDownloadError_Error(t *testing.T) {
	err := NewDownloadError("connection reset", ErrNetworkTransient)

	result := err.Error()
	if !strings.Contains(result, "NetworkTransient") {
		t.Error("Error() should contain the error type")
	}
	if !strings.Contains(result, "connection reset") {
		t.Error("Error() should contain the message")
	}
}

func TestDownloadError_DetailedError(t *testing.T) {
	err := NewDiskError("write", "/tmp/file.part0", errors.New("no space left")).
		WithContext("attempt", 2)

	result := err.DetailedError()
	if !strings.Contains(result, "CRITICAL") {
		t.Error("DetailedError should contain severity")
	}
	if !strings.Contains(result, "DiskError") {
		t.Error("DetailedError should contain the error type")
	}
	if !strings.Contains(result, "attempt=2") {
		t.Error("DetailedError should contain attached context")
	}
}

func TestDownloadError_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		errorType ErrorType
		want      bool
	}{
		{"network_transient_retryable", ErrNetworkTransient, true},
		{"disk_error_retryable", ErrDiskError, true},
		{"segment_exhausted_not_retryable", ErrSegmentExhausted, false},
		{"canceled_not_retryable", ErrCanceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDownloadError("x", tt.errorType)
			if err.IsRetryable() != tt.want {
				t.Errorf("IsRetryable() for %v = %v, want %v", tt.errorType, err.IsRetryable(), tt.want)
			}
		})
	}
}

func TestNewSegmentExhaustedError_CarriesSegmentID(t *testing.T) {
	err := NewSegmentExhaustedError(3)
	if err.Type != ErrSegmentExhausted {
		t.Errorf("expected ErrSegmentExhausted, got %v", err.Type)
	}
	if err.Context["segment_id"] != 3 {
		t.Errorf("expected segment_id context 3, got %v", err.Context["segment_id"])
	}
}

func TestNewMetaCorruptError(t *testing.T) {
	err := NewMetaCorruptError("downloads/meta/abc.meta.json", errors.New("unexpected EOF"))
	if err.Type != ErrMetaCorrupt {
		t.Errorf("expected ErrMetaCorrupt, got %v", err.Type)
	}
	if err.Severity != SeverityWarning {
		t.Errorf("expected SeverityWarning, got %v", err.Severity)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("num_threads", "must be between 1 and 32").
		WithValue(64).
		WithSuggestion("pass -t between 1 and 32")

	result := err.Error()
	if !strings.Contains(result, "num_threads") {
		t.Error("expected field name in error message")
	}
	if !strings.Contains(result, "pass -t between 1 and 32") {
		t.Error("expected suggestion in error message")
	}
}
