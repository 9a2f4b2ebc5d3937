package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageAndUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewIOError(ErrCodeFileNotReadable, "cannot read resume", cause)

	assert.Equal(t, "FILE_NOT_READABLE: cannot read resume (caused by: disk full)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INDEX_OUT_OF_RANGE: bad", NewValidationError(ErrCodeIndexOutOfRange, "bad", nil).Error())
}

func TestAppErrorIsMatchesByCode(t *testing.T) {
	sentinel := NewValidationError(ErrCodeUnsupportedFormat, "unsupported", nil)
	wrapped := fmt.Errorf("upload: %w", NewValidationError(ErrCodeUnsupportedFormat, "text/plain", nil))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, NewValidationError(ErrCodeInvalidFormat, "x", nil))
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", stderrors.New("boom"), "boom"},
		{"app error", NewAIError(ErrCodeAIServiceFailed, "model unavailable", nil), "model unavailable"},
		{"app error with cause", NewAIError(ErrCodeAIServiceFailed, "refine failed", stderrors.New("Error 500: oops")), "refine failed: Error 500: oops"},
		{"wrapped", fmt.Errorf("ctx: %w", NewNotFoundError(ErrCodeSessionNotFound, "session not found", nil)), "session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Display(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	inner := NewAIError(ErrCodeRateLimited, "slow down", nil)
	outer := NewAIError(ErrCodeAIServiceFailed, "tailor failed", inner)

	assert.True(t, HasCode(outer, ErrCodeRateLimited))
	assert.True(t, HasCode(fmt.Errorf("x: %w", outer), ErrCodeAIServiceFailed))
	assert.False(t, HasCode(outer, ErrCodeRenderFailed))
	assert.False(t, HasCode(nil, ErrCodeRenderFailed))
}

func TestLoggerLogErrorIncludesContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewValidationError(ErrCodeIndexOutOfRange, "index out of range", nil).
		WithContext("section", "experience").
		WithContext("index", 3)
	logger.LogError(err, "delete failed", "session", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "delete failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "INDEX_OUT_OF_RANGE", entry["error_code"])
	assert.Equal(t, "experience", entry["section"])
	assert.Equal(t, "abc", entry["session"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose")
	assert.Error(t, err)

	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := New(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}
}
