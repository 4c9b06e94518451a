// Package errors provides structured error handling for manualrag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (index files, disk)
//   - 3XX: Channel/network errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors (scoring, fusion, lifecycle)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates index file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryChannel indicates retrieval-channel and network errors.
	CategoryChannel Category = "CHANNEL"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeIndexLocked  = "ERR_201_INDEX_LOCKED"
	ErrCodeCorruptIndex = "ERR_202_CORRUPT_INDEX"

	// Channel errors (300-399)
	ErrCodeChannelTimeout     = "ERR_301_CHANNEL_TIMEOUT"
	ErrCodeChannelUnavailable = "ERR_302_CHANNEL_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal           = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed    = "ERR_502_EMBEDDING_FAILED"
	ErrCodeScoringFailed      = "ERR_503_SCORING_FAILED"
	ErrCodeSearchFailed       = "ERR_504_SEARCH_FAILED"
	ErrCodeInconsistentDelete = "ERR_505_INCONSISTENT_DELETE"
	ErrCodeIndexFailed        = "ERR_506_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryChannel
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	case ErrCodeScoringFailed:
		// Rerank failure degrades to fused order, it never fails the search.
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Retry policy belongs to the channel clients, never to the fusion logic.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeChannelTimeout, ErrCodeChannelUnavailable, ErrCodeEmbeddingFailed:
		return true
	default:
		return false
	}
}
