package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorFormatting(t *testing.T) {
	err := NewValidationError(ErrCodeEmptyDocument, "empty file", nil)
	assert.Equal(t, "EMPTY_DOCUMENT: empty file", err.Error())

	wrapped := NewIOError(ErrCodeFileNotReadable, "read failed", io.ErrUnexpectedEOF)
	assert.Contains(t, wrapped.Error(), "caused by: unexpected EOF")
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
}

func TestAsAndIsType(t *testing.T) {
	base := NewNotFoundError(ErrCodeNotFound, "user not found").WithContext("email", "a@b.c")
	wrapped := fmt.Errorf("lookup: %w", base)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeNotFound, appErr.Type)
	assert.Equal(t, "a@b.c", appErr.Context["email"])

	assert.True(t, IsType(wrapped, ErrorTypeNotFound))
	assert.False(t, IsType(wrapped, ErrorTypeValidation))
	assert.False(t, IsType(io.EOF, ErrorTypeNotFound))
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}
