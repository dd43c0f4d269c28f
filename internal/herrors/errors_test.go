package herrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")
	wrapped := New(CodeStoreIO, "open failed", originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, originalErr, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{name: "dimension mismatch", code: CodeDimensionMismatch, message: "vector width 384, expected 768", expected: "[ERR_401_DIMENSION_MISMATCH] vector width 384, expected 768"},
		{name: "store io", code: CodeStoreIO, message: "open index.db failed", expected: "[ERR_201_STORE_IO] open index.db failed"},
		{name: "embedder io", code: CodeEmbedderIO, message: "ollama request failed", expected: "[ERR_301_EMBEDDER_IO] ollama request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	a := New(CodeStoreIO, "first", nil)
	b := New(CodeStoreIO, "second", nil)
	c := New(CodeEmbedderIO, "third", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestCategoryFromCode(t *testing.T) {
	assert.Equal(t, CategoryValidation, New(CodeDimensionMismatch, "", nil).Category)
	assert.Equal(t, CategoryIO, New(CodeStoreIO, "", nil).Category)
	assert.Equal(t, CategoryNetwork, New(CodeEmbedderIO, "", nil).Category)
	assert.Equal(t, CategoryConfig, New(CodeMigrationRequired, "", nil).Category)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeEmbedderIO, "timeout", nil)))
	assert.False(t, IsRetryable(New(CodeStoreIO, "disk full", nil)))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestWithDetail(t *testing.T) {
	err := New(CodeDimensionMismatch, "mismatch", nil).WithDetail("expected", "768").WithDetail("got", "384")
	assert.Equal(t, "768", err.Details["expected"])
	assert.Equal(t, "384", err.Details["got"])
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeStoreIO, nil))
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeStoreIO, Code(New(CodeStoreIO, "x", nil)))
	assert.Equal(t, "", Code(errors.New("plain")))
}
