package errors

import (
	stderrors "errors"
	"fmt"
)

// RagError is the structured error type for manualrag.
// It provides code, category, and severity for error handling, logging,
// and caller-side policy (retry vs. degrade vs. abort).
type RagError struct {
	// Code is the unique error code (e.g., "ERR_302_CHANNEL_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Channel, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *RagError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RagError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *RagError) Is(target error) bool {
	if t, ok := target.(*RagError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RagError) WithDetail(key, value string) *RagError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new RagError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *RagError {
	return &RagError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RagError from an existing error.
// The error's message becomes the RagError message.
func Wrap(code string, err error) *RagError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ChannelUnavailable creates an error for a failed retrieval-channel call.
func ChannelUnavailable(channel string, cause error) *RagError {
	return New(ErrCodeChannelUnavailable,
		fmt.Sprintf("%s channel unavailable", channel), cause).
		WithDetail("channel", channel)
}

// ChannelTimeout creates an error for a channel call that exceeded its deadline.
func ChannelTimeout(channel string, cause error) *RagError {
	return New(ErrCodeChannelTimeout,
		fmt.Sprintf("%s channel timed out", channel), cause).
		WithDetail("channel", channel)
}

// ScoringFailure creates an error for a failed cross-encoder call.
// Callers recover locally by keeping the fused order.
func ScoringFailure(cause error) *RagError {
	return New(ErrCodeScoringFailed, "cross-encoder scoring failed", cause)
}

// InconsistentDelete creates an error for a replace-on-reingest delete that
// succeeded on one channel and failed on the other.
func InconsistentDelete(sourceURL string, cause error) *RagError {
	return New(ErrCodeInconsistentDelete,
		fmt.Sprintf("delete for %s left channels inconsistent", sourceURL), cause).
		WithDetail("source_url", sourceURL)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var re *RagError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var re *RagError
	if stderrors.As(err, &re) {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a RagError.
// Returns empty string for other error types.
func GetCode(err error) string {
	var re *RagError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}
