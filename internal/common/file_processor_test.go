package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscore/internal/errors"
	"atscore/internal/pipeline"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadUploads(t *testing.T) {
	dir := t.TempDir()
	resume := writeFile(t, dir, "asha.txt", "Go developer")
	fp := NewFileProcessor(nil, 0)

	uploads, err := fp.ReadUploads("backend role", resume)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "asha.txt", uploads[0].Filename)
	assert.Equal(t, []byte("Go developer"), uploads[0].Content)
	assert.Equal(t, "backend role", uploads[0].JobDescription)
}

func TestReadUploadsRejects(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.txt", "0123456789abcdef")
	image := writeFile(t, dir, "photo.png", "png")

	tests := []struct {
		name string
		file string
		max  int64
		code string
	}{
		{"missing", filepath.Join(dir, "nope.pdf"), 0, "INVALID_INPUT_FILE"},
		{"too large", big, 8, "INVALID_INPUT_FILE"},
		{"unsupported extension", image, 0, errors.ErrCodeInvalidFormat},
		{"directory", dir, 0, "INVALID_INPUT_FILE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileProcessor(nil, tt.max).ReadUploads("", tt.file)
			require.Error(t, err)
			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestReadText(t *testing.T) {
	jd := writeFile(t, t.TempDir(), "jd.md", "Senior Go engineer")
	text, err := NewFileProcessor(nil, 0).ReadText(jd)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go engineer", text)
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "report.json")
	require.NoError(t, NewFileProcessor(nil, 0).WriteFile(path, []byte("{}")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestHandleOutputWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	cfg := CommandConfig{
		OutputFile:   filepath.Join(dir, "result.json"),
		OutputFormat: "json",
		WorkbookFile: filepath.Join(dir, "xlsx", "screening.xlsx"),
	}

	err := NewOutputHandler(nil).HandleOutput(&pipeline.ScreenResult{}, cfg)
	require.NoError(t, err)

	out, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"count": 0`)

	workbook, err := os.ReadFile(cfg.WorkbookFile)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(workbook[:2]))
}

func TestHandleOutputUnknownFormat(t *testing.T) {
	err := NewOutputHandler(nil).HandleOutput(&pipeline.Result{}, CommandConfig{OutputFormat: "xml"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
