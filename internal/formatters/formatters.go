package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"atscore/internal/ats"
	"atscore/internal/pipeline"
	"atscore/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ScoreResult", &ScoreTextFormatter{})
	registry.RegisterFormatter("markdown", "ScoreResult", &ScoreMarkdownFormatter{})
	registry.RegisterFormatter("text", "ScreenResult", &ScreenTextFormatter{})
	registry.RegisterFormatter("markdown", "ScreenResult", &ScreenMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *pipeline.Result, pipeline.Result:
		return "ScoreResult"
	case *pipeline.ScreenResult, pipeline.ScreenResult:
		return "ScreenResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func asScoreResult(data any) (*pipeline.Result, error) {
	switch v := data.(type) {
	case *pipeline.Result:
		if v == nil {
			return nil, fmt.Errorf("nil score result")
		}
		return v, nil
	case pipeline.Result:
		return &v, nil
	default:
		return nil, fmt.Errorf("expected pipeline.Result, got %T", data)
	}
}

func asScreenResult(data any) (*pipeline.ScreenResult, error) {
	switch v := data.(type) {
	case *pipeline.ScreenResult:
		if v == nil {
			return nil, fmt.Errorf("nil screen result")
		}
		return v, nil
	case pipeline.ScreenResult:
		return &v, nil
	default:
		return nil, fmt.Errorf("expected pipeline.ScreenResult, got %T", data)
	}
}

// ScoreTextFormatter renders a single resume score as plain text
type ScoreTextFormatter struct{}

func (stf *ScoreTextFormatter) Format(data any) (string, error) {
	result, err := asScoreResult(data)
	if err != nil {
		return "", err
	}
	report := result.Report

	var output strings.Builder

	output.WriteString("=== ATS SCORE ===\n")
	fmt.Fprintf(&output, "File: %s\n", result.Filename)
	fmt.Fprintf(&output, "Score: %.2f/100\n", report.Score)
	fmt.Fprintf(&output, "Word Count: %d\n", report.WordCount)
	fmt.Fprintf(&output, "Languages: %s\n\n", strings.Join(report.Languages, ", "))

	output.WriteString("=== BREAKDOWN ===\n")
	for _, c := range ats.Categories() {
		fmt.Fprintf(&output, "%-22s %6.2f / %g\n", c.String(), report.Breakdown.Get(c), c.Cap())
	}
	output.WriteString("\n")

	if profile := profileLines(result.Data); len(profile) > 0 {
		output.WriteString("=== PROFILE ===\n")
		for _, line := range profile {
			fmt.Fprintf(&output, "%s: %s\n", line[0], line[1])
		}
	}

	return output.String(), nil
}

func (stf *ScoreTextFormatter) SupportedType() string {
	return "ScoreResult"
}

// ScoreMarkdownFormatter renders a single resume score as markdown
type ScoreMarkdownFormatter struct{}

func (smf *ScoreMarkdownFormatter) Format(data any) (string, error) {
	result, err := asScoreResult(data)
	if err != nil {
		return "", err
	}
	report := result.Report

	var output strings.Builder

	fmt.Fprintf(&output, "# ATS Report: %s\n\n", result.Filename)
	fmt.Fprintf(&output, "**Score:** %.2f/100\n\n", report.Score)
	fmt.Fprintf(&output, "**Word Count:** %d\n\n", report.WordCount)
	fmt.Fprintf(&output, "**Languages:** %s\n\n", strings.Join(report.Languages, ", "))

	output.WriteString("## Breakdown\n\n")
	output.WriteString("| Category | Score | Max |\n")
	output.WriteString("|---|---:|---:|\n")
	for _, c := range ats.Categories() {
		fmt.Fprintf(&output, "| %s | %.2f | %g |\n", c.String(), report.Breakdown.Get(c), c.Cap())
	}
	fmt.Fprintf(&output, "| **%s** | **%.2f** | %g |\n\n", ats.TotalKey, report.Score, ats.MaxTotal)

	if profile := profileLines(result.Data); len(profile) > 0 {
		output.WriteString("## Profile\n\n")
		for _, line := range profile {
			fmt.Fprintf(&output, "- **%s:** %s\n", line[0], line[1])
		}
	}

	return output.String(), nil
}

func (smf *ScoreMarkdownFormatter) SupportedType() string {
	return "ScoreResult"
}

func profileLines(fields *types.StructuredFields) [][2]string {
	if fields == nil {
		return nil
	}
	candidates := [][2]string{
		{"Name", fields.Name.String()},
		{"Email", fields.Email.String()},
		{"Phone", fields.Phone.String()},
		{"Degree", fields.Education.Bachelor.Degree.String()},
		{"CGPA", fields.Education.Bachelor.CGPA.String()},
		{"Technical Skills", strings.Join(fields.Skills.Technical, ", ")},
		{"Soft Skills", strings.Join(fields.Skills.Soft, ", ")},
		{"Certificates", strings.Join(fields.Certificates, ", ")},
		{"Role Match", fields.RoleMatch.String()},
	}
	var lines [][2]string
	for _, c := range candidates {
		if strings.TrimSpace(c[1]) != "" {
			lines = append(lines, c)
		}
	}
	return lines
}

// ScreenTextFormatter renders bulk screening results as plain text
type ScreenTextFormatter struct{}

func (stf *ScreenTextFormatter) Format(data any) (string, error) {
	result, err := asScreenResult(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== SCREENING RESULTS ===\n")
	fmt.Fprintf(&output, "Matches: %d\n\n", result.Count)

	for i, m := range result.Results {
		fmt.Fprintf(&output, "%d. %s (%s)\n", i+1, displayName(m.Name), m.Filename)
		fmt.Fprintf(&output, "   ATS Score: %.2f\n", m.ATSScore)
		if len(m.Skills.Technical) > 0 {
			fmt.Fprintf(&output, "   Skills: %s\n", strings.Join(m.Skills.Technical, ", "))
		}
		fmt.Fprintf(&output, "   Languages: %s\n\n", strings.Join(m.Languages, ", "))
	}

	if len(result.Skipped) > 0 {
		output.WriteString("=== SKIPPED ===\n")
		for _, s := range result.Skipped {
			fmt.Fprintf(&output, "- %s: %s\n", s.Filename, s.Reason)
		}
	}

	return output.String(), nil
}

func (stf *ScreenTextFormatter) SupportedType() string {
	return "ScreenResult"
}

// ScreenMarkdownFormatter renders bulk screening results as markdown
type ScreenMarkdownFormatter struct{}

func (smf *ScreenMarkdownFormatter) Format(data any) (string, error) {
	result, err := asScreenResult(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("# Screening Results\n\n")
	fmt.Fprintf(&output, "**Matches:** %d\n\n", result.Count)

	if len(result.Results) > 0 {
		output.WriteString("| # | Name | File | ATS Score | Languages |\n")
		output.WriteString("|---:|---|---|---:|---|\n")
		for i, m := range result.Results {
			fmt.Fprintf(&output, "| %d | %s | %s | %.2f | %s |\n",
				i+1, displayName(m.Name), m.Filename, m.ATSScore, strings.Join(m.Languages, ", "))
		}
		output.WriteString("\n")
	} else {
		output.WriteString("No resumes matched the criteria.\n\n")
	}

	if len(result.Skipped) > 0 {
		output.WriteString("## Skipped\n\n")
		for _, s := range result.Skipped {
			fmt.Fprintf(&output, "- `%s`: %s\n", s.Filename, s.Reason)
		}
	}

	return output.String(), nil
}

func (smf *ScreenMarkdownFormatter) SupportedType() string {
	return "ScreenResult"
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(unnamed)"
	}
	return name
}
