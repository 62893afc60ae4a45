package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "atscore/internal/errors"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"name":"A"}`, `{"name":"A"}`},
		{"json fence", "```json\n{\"name\":\"A\"}\n```", `{"name":"A"}`},
		{"bare fence", "```\n{}\n```", `{}`},
		{"surrounding space", "  \n{}\n ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.input))
		})
	}
}

func TestDecodeExtraction(t *testing.T) {
	raw := "```json\n" + `{
		"name": "Asha Rao",
		"email": "asha@example.com",
		"languages": ["English", "Hindi"],
		"education": {"bachelor": {"degree": "B.Tech", "cgpa": "8.7/10"}, "10th": {"percentage": "92%"}},
		"skills": {"technical": ["Go", "SQL"], "soft": ["teamwork"]},
		"experience": "Built payment APIs",
		"projects": ""
	}` + "\n```"

	fields, err := DecodeExtraction(raw)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", fields.Name.String())
	assert.Equal(t, []string{"English", "Hindi"}, []string(fields.Languages))
	assert.InDelta(t, 8.7, fields.Education.Bachelor.CGPAValue(), 1e-9)
	assert.InDelta(t, 92, fields.Education.Tenth.PercentageValue(), 1e-9)
	assert.Equal(t, []string{"Go", "SQL"}, []string(fields.Skills.Technical))

	text, ok := fields.SectionText("experience")
	assert.True(t, ok)
	assert.Equal(t, "Built payment APIs", text)
}

func TestDecodeExtractionMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Sorry, I cannot help with that."},
		{"empty", ""},
		{"array root", `[{"name":"A"}]`},
		{"wrong type", `{"languages": 42}`},
		{"truncated", `{"name": "A", "skills": {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeExtraction(tt.raw)
			require.Error(t, err)
			appErr, ok := appErrors.As(err)
			require.True(t, ok)
			assert.Equal(t, appErrors.ErrorTypeAI, appErr.Type)
			assert.Equal(t, appErrors.ErrCodeAIMalformedOutput, appErr.Code)
			assert.Equal(t, tt.raw, appErr.Context["raw"])
		})
	}
}

func TestDecodeExtractionTruncatesRawContext(t *testing.T) {
	raw := strings.Repeat("x", maxRawContext+50)
	_, err := DecodeExtraction(raw)
	appErr, ok := appErrors.As(err)
	require.True(t, ok)
	assert.Len(t, appErr.Context["raw"], maxRawContext)
}

func TestValidateExtractionSchemaLoads(t *testing.T) {
	_, err := loadExtractionSchema()
	require.NoError(t, err)
	assert.NoError(t, ValidateExtraction(`{}`))
	assert.NoError(t, ValidateExtraction(`{"skills": ["Go"], "education": "B.Tech 2024"}`))
}
