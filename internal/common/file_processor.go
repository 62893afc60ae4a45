package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"atscore/internal/errors"
	"atscore/internal/pipeline"
	"atscore/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a file processor that rejects inputs larger than
// maxFileSize bytes. Zero disables the limit.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, content, 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ReadText validates and reads a text input such as a job description.
func (fp *FileProcessor) ReadText(filename string) (string, error) {
	if err := utils.ValidateInputFile(filename, fp.maxFileSize); err != nil {
		return "", errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if !utils.IsTextFile(filename) {
		fp.logger.Warn("File may not be a text file", "filename", filename)
	}
	content, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ReadUploads validates and reads resume files into pipeline uploads.
// Files with an extension the scorer cannot read are rejected.
func (fp *FileProcessor) ReadUploads(jobDescription string, filenames ...string) ([]pipeline.Upload, error) {
	uploads := make([]pipeline.Upload, 0, len(filenames))

	for _, filename := range filenames {
		if err := utils.ValidateInputFile(filename, fp.maxFileSize); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}
		if !utils.IsResumeFile(filename) {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("Unsupported resume file %s (expected .pdf or .txt)", filename), nil)
		}

		content, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		uploads = append(uploads, pipeline.Upload{
			Filename:       filepath.Base(filename),
			Content:        content,
			JobDescription: jobDescription,
		})
	}

	return uploads, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
