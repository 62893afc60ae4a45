package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscore/internal/ats"
	"atscore/internal/pipeline"
	"atscore/internal/screening"
	"atscore/internal/types"
)

func sampleResult() *pipeline.Result {
	var b ats.Breakdown
	b.Set(ats.SectionCoverage, 20)
	b.Set(ats.ContactInfo, 15)
	return &pipeline.Result{
		ID:       "id-1",
		Filename: "asha.pdf",
		Data: &types.StructuredFields{
			Name:   "Asha Rao",
			Email:  "asha@example.com",
			Skills: types.Skills{Technical: types.StringList{"Go", "SQL"}},
		},
		Report: ats.Assemble(b, 420, []string{"English"}),
	}
}

func TestFormatScoreResult(t *testing.T) {
	registry := NewFormatterRegistry()

	text, err := registry.Format(sampleResult(), "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Score: 35.00/100")
	assert.Contains(t, text, "Section Coverage")
	assert.Contains(t, text, "Technical Skills: Go, SQL")
	assert.NotContains(t, text, "Phone:")

	md, err := registry.Format(*sampleResult(), "markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "# ATS Report: asha.pdf"))
	assert.Contains(t, md, "| Contact Info | 15.00 | 20 |")
	assert.Contains(t, md, "| **Total ATS Score** | **35.00** | 100 |")

	js, err := registry.Format(sampleResult(), "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	assert.Equal(t, "id-1", decoded["id"])
}

func TestFormatScreenResult(t *testing.T) {
	registry := NewFormatterRegistry()
	result := &pipeline.ScreenResult{
		Count: 1,
		Results: []screening.Match{
			{Filename: "asha.pdf", Name: "Asha Rao", ATSScore: 61.5, Languages: []string{"english"}},
		},
		Skipped: []pipeline.Skipped{{Filename: "scan.pdf", Reason: "no text"}},
	}

	text, err := registry.Format(result, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "1. Asha Rao (asha.pdf)")
	assert.Contains(t, text, "- scan.pdf: no text")

	md, err := registry.Format(result, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "| 1 | Asha Rao | asha.pdf | 61.50 | english |")

	js, err := registry.Format(result, "json")
	require.NoError(t, err)
	assert.NotContains(t, js, "scan.pdf")

	empty, err := registry.Format(&pipeline.ScreenResult{}, "markdown")
	require.NoError(t, err)
	assert.Contains(t, empty, "No resumes matched the criteria.")
}

func TestFormatUnknown(t *testing.T) {
	registry := NewFormatterRegistry()
	_, err := registry.Format(sampleResult(), "yaml")
	assert.Error(t, err)

	_, err = registry.Format(map[string]int{"a": 1}, "text")
	assert.Error(t, err)

	assert.Equal(t, []string{"json", "markdown", "text"}, registry.GetSupportedFormats())
}
