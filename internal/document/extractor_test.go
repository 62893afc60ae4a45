package document

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscore/internal/errors"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(context.Background(), time.Second, errors.NewNopLogger())
	require.NoError(t, err)
	return e
}

func TestExtractTextValidation(t *testing.T) {
	e := newTestExtractor(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		content  string
		code     string
	}{
		{"empty", "cv.pdf", "", errors.ErrCodeEmptyDocument},
		{"blank text file", "cv.txt", " \n\t ", errors.ErrCodeNoReadableText},
		{"unsupported", "cv.docx", "PK\x03\x04", errors.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ExtractText(ctx, strings.NewReader(tt.content), tt.filename)
			require.Error(t, err)
			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestExtractTextPassesPlainText(t *testing.T) {
	e := newTestExtractor(t)
	text, err := e.ExtractText(context.Background(), strings.NewReader("Go developer\nBuilt APIs"), "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "Go developer\nBuilt APIs", text)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	assert.True(t, IsPDF([]byte("\n %PDF-1.4")))
	assert.False(t, IsPDF([]byte("PDF-1.4")))
	assert.False(t, IsPDF(nil))
}

func TestTextOnly(t *testing.T) {
	var x TextOnly
	_, err := x.ExtractText(context.Background(), strings.NewReader(""), "a.txt")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	text, err := x.ExtractText(context.Background(), strings.NewReader("hello"), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}
