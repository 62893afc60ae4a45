package common

import (
	"bytes"
	"fmt"

	"atscore/internal/errors"
	"atscore/internal/export"
	"atscore/internal/formatters"
	"atscore/internal/pipeline"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
	// WorkbookFile receives an Excel export of screening results when set.
	WorkbookFile string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	fp := NewFileProcessor(logger, 0)
	return &OutputHandler{
		fileProcessor: fp,
		registry:      formatters.NewFormatterRegistry(),
		logger:        fp.logger,
	}
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile != "" {
		if err := oh.fileProcessor.WriteFile(config.OutputFile, []byte(output)); err != nil {
			return err
		}
		oh.logger.Info("Output written successfully",
			"file", config.OutputFile, "format", config.OutputFormat)
	} else {
		fmt.Println(output)
	}

	if result, ok := data.(*pipeline.ScreenResult); ok && config.WorkbookFile != "" {
		return oh.writeWorkbook(result, config.WorkbookFile)
	}
	return nil
}

func (oh *OutputHandler) writeWorkbook(result *pipeline.ScreenResult, filename string) error {
	if err := oh.fileProcessor.ValidateOutputFile(filename); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteScreeningWorkbook(&buf, result); err != nil {
		return errors.NewInternalError("WORKBOOK_EXPORT_FAILED", "Failed to build screening workbook", err)
	}
	if err := oh.fileProcessor.WriteFile(filename, buf.Bytes()); err != nil {
		return err
	}

	oh.logger.Info("Screening workbook written", "file", filename, "matches", result.Count)
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
