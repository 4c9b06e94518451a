package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesClassification(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeIndexLocked, CategoryIO, SeverityError, false},
		{ErrCodeCorruptIndex, CategoryIO, SeverityFatal, false},
		{ErrCodeChannelTimeout, CategoryChannel, SeverityWarning, true},
		{ErrCodeChannelUnavailable, CategoryChannel, SeverityWarning, true},
		{ErrCodeQueryEmpty, CategoryValidation, SeverityError, false},
		{ErrCodeScoringFailed, CategoryInternal, SeverityWarning, false},
		{ErrCodeEmbeddingFailed, CategoryInternal, SeverityWarning, true},
		{ErrCodeInconsistentDelete, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "message", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestRagError_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := New(ErrCodeChannelUnavailable, "dense channel unavailable", cause)

	assert.Equal(t, "[ERR_302_CHANNEL_UNAVAILABLE] dense channel unavailable", err.Error())
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestRagError_IsMatchesByCode(t *testing.T) {
	err := ChannelTimeout("lexical", nil)
	assert.True(t, stderrors.Is(err, New(ErrCodeChannelTimeout, "", nil)))
	assert.False(t, stderrors.Is(err, New(ErrCodeChannelUnavailable, "", nil)))
}

func TestWithDetail(t *testing.T) {
	err := InconsistentDelete("https://manuali.example.it/iva", nil).
		WithDetail("failed_channel", "dense")

	assert.Equal(t, "https://manuali.example.it/iva", err.Details["source_url"])
	assert.Equal(t, "dense", err.Details["failed_channel"])
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeCorruptIndex, nil))

	wrapped := Wrap(ErrCodeCorruptIndex, fmt.Errorf("bad gob header"))
	require.NotNil(t, wrapped)
	assert.Equal(t, "bad gob header", wrapped.Message)
}

func TestHelpers(t *testing.T) {
	timeout := ChannelTimeout("dense", nil)
	assert.True(t, IsRetryable(timeout))
	assert.False(t, IsFatal(timeout))
	assert.Equal(t, ErrCodeChannelTimeout, GetCode(timeout))

	// Helpers see through wrapping.
	wrapped := fmt.Errorf("search: %w", timeout)
	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, ErrCodeChannelTimeout, GetCode(wrapped))

	plain := fmt.Errorf("plain")
	assert.False(t, IsRetryable(plain))
	assert.Empty(t, GetCode(plain))
}
