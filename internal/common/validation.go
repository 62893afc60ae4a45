package common

import (
	"fmt"
	"slices"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat applies the configured default when format is empty
// and validates the result.
func ResolveOutputFormat(format, defaultFormat string, supportedFormats []string) (string, error) {
	if format == "" {
		format = defaultFormat
	}
	if format == "" {
		format = "json"
	}
	return format, ValidateOutputFormat(format, supportedFormats)
}
