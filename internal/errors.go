package internal

import (
	"fmt"
	"strings"
)

// ErrorType enumerates the error taxonomy the engine reports: transient
// network failures, exhausted segment retries, servers that can't be
// segmented, corrupt metadata, disk failures, and user cancellation.
type ErrorType int

const (
	ErrNetworkTransient ErrorType = iota
	ErrSegmentExhausted
	ErrServerNotSegmentable
	ErrMetaCorrupt
	ErrDiskError
	ErrCanceled
)

// ErrorSeverity mirrors the teacher's severity ladder.
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// DownloadError carries the engine's error taxonomy, a default
// operator-facing suggestion, and enough context (segment id, task id,
// path) to diagnose a failed run without re-reading logs.
type DownloadError struct {
	Message    string                 `json:"message"`
	Type       ErrorType              `json:"type"`
	Severity   ErrorSeverity          `json:"severity"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s: %s", e.Type.String(), e.Message))
	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("suggestion: %s", e.Suggestion))
	}
	return strings.Join(parts, " - ")
}

// DetailedError returns a multi-line error message with severity, type,
// context, and suggestion, for verbose/debug logging.
func (e *DownloadError) DetailedError() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Severity.String(), e.Type.String()))
	parts = append(parts, fmt.Sprintf("Message: %s", e.Message))

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case ErrNetworkTransient:
		return "NetworkTransient"
	case ErrSegmentExhausted:
		return "SegmentExhausted"
	case ErrServerNotSegmentable:
		return "ServerNotSegmentable"
	case ErrMetaCorrupt:
		return "MetaCorrupt"
	case ErrDiskError:
		return "DiskError"
	case ErrCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// String returns the string representation of ErrorSeverity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NewDownloadError creates a DownloadError with the type's default
// severity and suggestion already populated.
func NewDownloadError(message string, errorType ErrorType) *DownloadError {
	return &DownloadError{
		Message:    message,
		Type:       errorType,
		Severity:   defaultSeverity(errorType),
		Suggestion: defaultSuggestion(errorType),
		Context:    make(map[string]interface{}),
	}
}

// WithSuggestion overrides the default suggestion.
func (e *DownloadError) WithSuggestion(suggestion string) *DownloadError {
	e.Suggestion = suggestion
	return e
}

// WithContext attaches a key/value pair of diagnostic context.
func (e *DownloadError) WithContext(key string, value interface{}) *DownloadError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsRetryable reports whether the segment worker's local retry loop
// should burn another attempt on this error. Disk errors count against
// the retry budget alongside transient network failures; everything
// else (exhausted budget, corrupt metadata, an unsegmentable server, a
// user-initiated cancel) is terminal.
func (e *DownloadError) IsRetryable() bool {
	return e.Type == ErrNetworkTransient || e.Type == ErrDiskError
}

// IsCritical reports whether the error should stop the task outright
// rather than fall back or retry.
func (e *DownloadError) IsCritical() bool {
	return e.Severity == SeverityCritical
}

func defaultSeverity(t ErrorType) ErrorSeverity {
	switch t {
	case ErrNetworkTransient, ErrServerNotSegmentable, ErrCanceled:
		return SeverityInfo
	case ErrMetaCorrupt:
		return SeverityWarning
	case ErrSegmentExhausted:
		return SeverityError
	case ErrDiskError:
		return SeverityCritical
	default:
		return SeverityError
	}
}

func defaultSuggestion(t ErrorType) string {
	switch t {
	case ErrNetworkTransient:
		return "check connectivity; this attempt will be retried automatically"
	case ErrSegmentExhausted:
		return "the segment burned its retry budget; retry the task once the server is reachable"
	case ErrServerNotSegmentable:
		return "server omitted Accept-Ranges or Content-Length; falling back to a single-stream transfer"
	case ErrMetaCorrupt:
		return "metadata file failed to parse; the task will be treated as fresh"
	case ErrDiskError:
		return "check available disk space and permissions on the output and metadata directories"
	case ErrCanceled:
		return "task was canceled by the caller"
	default:
		return ""
	}
}

// Common error constructors used across the engine.

// NewNetworkTransientError wraps a transport or non-2xx/206 failure that
// should be retried locally by the segment worker.
func NewNetworkTransientError(segmentID int, cause error) *DownloadError {
	return NewDownloadError(cause.Error(), ErrNetworkTransient).
		WithContext("segment_id", segmentID)
}

// NewSegmentExhaustedError reports a segment that burned all of its
// configured retries.
func NewSegmentExhaustedError(segmentID int) *DownloadError {
	return NewDownloadError(fmt.Sprintf("segment %d exhausted its retry budget", segmentID), ErrSegmentExhausted).
		WithContext("segment_id", segmentID)
}

// NewServerNotSegmentableError signals the HEAD probe found no
// Accept-Ranges or Content-Length. The engine chooses the single-stream
// fallback from utils.Probe.Segmentable and does not construct this
// error, so it never surfaces as a task failure.
func NewServerNotSegmentableError(url string) *DownloadError {
	return NewDownloadError("server does not support ranged requests", ErrServerNotSegmentable).
		WithContext("url", url)
}

// NewMetaCorruptError wraps a metadata file that exists but fails to
// parse.
func NewMetaCorruptError(path string, cause error) *DownloadError {
	return NewDownloadError(fmt.Sprintf("metadata at %s failed to parse: %v", path, cause), ErrMetaCorrupt).
		WithContext("path", path)
}

// NewDiskError wraps a failure to open/append/write/merge/remove a
// file.
func NewDiskError(op, path string, cause error) *DownloadError {
	return NewDownloadError(fmt.Sprintf("%s failed on %s: %v", op, path, cause), ErrDiskError).
		WithContext("path", path).
		WithContext("op", op)
}

// NewCanceledError reports that a task was intentionally canceled.
func NewCanceledError(taskID string) *DownloadError {
	return NewDownloadError("task canceled", ErrCanceled).
		WithContext("task_id", taskID)
}

// ValidationError represents input validation errors (malformed URL,
// bad output path, out-of-range thread count).
type ValidationError struct {
	Field      string                 `json:"field"`
	Message    string                 `json:"message"`
	Value      interface{}            `json:"value,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)}
	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("suggestion: %s", e.Suggestion))
	}
	return strings.Join(parts, " - ")
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Context: make(map[string]interface{})}
}

// WithSuggestion adds a suggestion to the validation error.
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.Suggestion = suggestion
	return e
}

// WithValue records the offending value on the validation error.
func (e *ValidationError) WithValue(value interface{}) *ValidationError {
	e.Value = value
	return e
}
