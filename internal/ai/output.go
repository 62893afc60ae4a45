package ai

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"atscore/internal/errors"
	"atscore/internal/types"
)

//go:embed extraction.schema.json
var extractionSchemaJSON string

var loadExtractionSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(extractionSchemaJSON))
})

// maxRawContext bounds the raw model output attached to malformed-output errors.
const maxRawContext = 2000

// StripCodeFences removes markdown code fences around model output.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ValidateExtraction checks model output against the extraction JSON schema.
func ValidateExtraction(doc string) error {
	schema, err := loadExtractionSchema()
	if err != nil {
		return fmt.Errorf("extraction schema does not load: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("output is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, field+": "+desc.Description())
	}
	return fmt.Errorf("output does not match extraction schema: %s", strings.Join(problems, "; "))
}

// DecodeExtraction turns raw model output into structured fields. Output
// that is not a JSON object of the expected shape is an AI error carrying
// the raw text in its context.
func DecodeExtraction(raw string) (*types.StructuredFields, error) {
	cleaned := StripCodeFences(raw)

	if err := ValidateExtraction(cleaned); err != nil {
		return nil, malformedOutput(raw, err)
	}

	fields, err := types.ParseStructuredFields([]byte(cleaned))
	if err != nil {
		return nil, malformedOutput(raw, err)
	}
	return fields, nil
}

func malformedOutput(raw string, cause error) *errors.AppError {
	if len(raw) > maxRawContext {
		raw = raw[:maxRawContext]
	}
	return errors.NewAIError(errors.ErrCodeAIMalformedOutput,
		"Failed to parse AI JSON", cause).WithContext("raw", raw)
}
