package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("disk full")

	// When: wrapping with a DocError
	docErr := New(ErrCodeIndexFailed, "cannot persist document", originalErr)

	// Then: unwrapping returns the original error
	require.NotNil(t, docErr)
	assert.Equal(t, originalErr, errors.Unwrap(docErr))
	assert.True(t, errors.Is(docErr, originalErr))
}

func TestDocError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigInvalid,
			message:  "search.max_results must be positive",
			expected: "[ERR_102_CONFIG_INVALID] search.max_results must be positive",
		},
		{
			name:     "folder error",
			code:     ErrCodeFolderNotFound,
			message:  "target directory does not exist",
			expected: "[ERR_202_FOLDER_NOT_FOUND] target directory does not exist",
		},
		{
			name:     "collaborator error",
			code:     ErrCodeConversionService,
			message:  "conversion request failed",
			expected: "[ERR_301_CONVERSION_SERVICE] conversion request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestDocError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeFileNotFound, "fatura_001.pdf not found", nil)
	err2 := New(ErrCodeFileNotFound, "recibo.png not found", nil)
	other := New(ErrCodeConfigNotFound, "config not found", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, other))
}

func TestDocError_WithDetail_AddsContext(t *testing.T) {
	err := New(ErrCodeIndexFailed, "cannot persist document", nil).
		WithDetail("path", "/arquivo/2024/fatura_001.pdf")

	assert.Equal(t, "/arquivo/2024/fatura_001.pdf", err.Details["path"])
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWrap_ReusesMessageAndKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeConversionService, cause)

	require.NotNil(t, err)
	assert.Equal(t, "connection refused", err.Message)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestNew_DerivesClassificationFromCode(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigNotFound, CategoryConfig, SeverityError, false},
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeFileNotFound, CategoryIO, SeverityError, false},
		{ErrCodeFolderNotFound, CategoryIO, SeverityFatal, false},
		{ErrCodeCorruptIndex, CategoryIO, SeverityFatal, false},
		{ErrCodeConversionService, CategoryCollaborator, SeverityWarning, true},
		{ErrCodeOCRFailed, CategoryCollaborator, SeverityError, false},
		{ErrCodeStoreUnavailable, CategoryCollaborator, SeverityWarning, true},
		{ErrCodeInternal, CategoryInternal, SeverityError, false},
		{ErrCodeSearchFailed, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "x", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestHelpers_UseTheirCategoryCode(t *testing.T) {
	assert.Equal(t, ErrCodeConfigInvalid, ConfigError("bad config", nil).Code)
	assert.Equal(t, ErrCodeFileNotFound, IOError("unreadable", nil).Code)
	assert.Equal(t, ErrCodeConversionService, CollaboratorError("down", nil).Code)
	assert.Equal(t, ErrCodeInternal, InternalError("boom", nil).Code)
}

func TestIsRetryable_SeesThroughWrappedChains(t *testing.T) {
	// Given: a retryable error buried under a plain fmt wrapper
	inner := CollaboratorError("conversion request failed", nil)
	wrapped := fmt.Errorf("extract %q: %w", "fatura.pdf", inner)

	// Then: the chain is still classified as retryable
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(nil))
}

func TestIsFatal_SeesThroughWrappedChains(t *testing.T) {
	inner := New(ErrCodeCorruptIndex, "index header unreadable", nil)
	wrapped := fmt.Errorf("open store: %w", inner)

	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsFatal(New(ErrCodeOCRFailed, "tesseract exited 1", nil)))
	assert.False(t, IsFatal(nil))
}

func TestGetCode_ReturnsFirstCodeInChain(t *testing.T) {
	inner := New(ErrCodeStoreUnavailable, "index is closed", nil)
	wrapped := fmt.Errorf("upsert: %w", inner)

	assert.Equal(t, ErrCodeStoreUnavailable, GetCode(wrapped))
	assert.Equal(t, "", GetCode(errors.New("plain error")))
}
