package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumericOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		value any
		def   float64
		want  float64
	}{
		{"nil", nil, 0, 0},
		{"nil custom default", nil, 7.5, 7.5},
		{"float", 8.25, 0, 8.25},
		{"int", 92, 0, 92},
		{"int64", int64(75), 0, 75},
		{"numeric string", "8.5", 0, 8.5},
		{"padded string", "  91.2 ", 0, 91.2},
		{"percent", "87%", 0, 87},
		{"percent with space", "87 %", 0, 87},
		{"scale suffix", "8.5/10", 0, 8.5},
		{"flex string", FlexString("9.1"), 0, 9.1},
		{"json number", json.Number("66"), 0, 66},
		{"empty string", "", 1, 1},
		{"words", "first class", 3, 3},
		{"nan", math.NaN(), 2, 2},
		{"inf string", "Inf", 4, 4},
		{"unsupported type", []string{"1"}, 5, 5},
		{"bool", true, 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseNumericOrDefault(tt.value, tt.def), 1e-9)
		})
	}
}

func TestStructuredFieldsDecodesExtractorOutput(t *testing.T) {
	raw := `{
		"name": "Asha Raman",
		"email": "asha@example.com",
		"phone": 9876543210,
		"languages": ["English", "tamil"],
		"education": {
			"10th": {"school": "KV", "percentage": "92%"},
			"12th": {"school": "KV", "percentage": 88.5},
			"bachelor": {"institute": "NIT", "degree": "B.Tech Computer Science", "cgpa": "8.7/10"}
		},
		"skills": {"technical": ["Go", "Python", 3], "soft": ["teamwork"]},
		"certificates": "AWS Certified",
		"experience": "Backend engineer building payment services with Go and PostgreSQL for two years.",
		"projects": ["not", "a", "string"],
		"role_match": "Backend Developer"
	}`

	fields, err := ParseStructuredFields([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "Asha Raman", fields.Name.String())
	assert.Equal(t, "9876543210", fields.Phone.String())
	assert.Equal(t, StringList{"English", "tamil"}, fields.Languages)
	assert.InDelta(t, 92, fields.Education.Tenth.PercentageValue(), 1e-9)
	assert.InDelta(t, 88.5, fields.Education.Twelfth.PercentageValue(), 1e-9)
	assert.InDelta(t, 8.7, fields.Education.Bachelor.CGPAValue(), 1e-9)
	assert.Equal(t, StringList{"Go", "Python", "3"}, fields.Skills.Technical)
	assert.Empty(t, fields.Certificates, "scalar where a list is expected becomes empty")

	exp, ok := fields.SectionText(SectionExperience)
	require.True(t, ok)
	assert.Contains(t, exp, "payment services")

	_, ok = fields.SectionText(SectionProjects)
	assert.False(t, ok, "non-string section is not section text")
	_, ok = fields.SectionText(SectionEducation)
	assert.False(t, ok, "structured education is not section text")
}

func TestStructuredFieldsSectionStrings(t *testing.T) {
	raw := `{"education": "B.Tech in Computer Science from NIT Trichy with 8.7 CGPA, 2020-2024",
		"skills": "Go, Python, Kubernetes, PostgreSQL, Redis, gRPC and distributed systems"}`

	fields, err := ParseStructuredFields([]byte(raw))
	require.NoError(t, err)

	edu, ok := fields.SectionText(SectionEducation)
	require.True(t, ok)
	assert.Contains(t, edu, "NIT Trichy")
	skills, ok := fields.SectionText(SectionSkills)
	require.True(t, ok)
	assert.Contains(t, skills, "Kubernetes")
	assert.Empty(t, fields.Skills.Technical)
}

func TestStructuredFieldsRoundTripKeepsSections(t *testing.T) {
	fields := &StructuredFields{Name: "Ravi"}
	fields.SetSection("Experience", "Built things")

	data, err := json.Marshal(fields)
	require.NoError(t, err)

	decoded, err := ParseStructuredFields(data)
	require.NoError(t, err)
	text, ok := decoded.SectionText(SectionExperience)
	require.True(t, ok)
	assert.Equal(t, "Built things", text)
	assert.Equal(t, "Ravi", decoded.Name.String())
}

func TestStructuredFieldsRejectsNonObject(t *testing.T) {
	_, err := ParseStructuredFields([]byte(`["not", "an", "object"]`))
	assert.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := &StructuredFields{Languages: StringList{"english"}}
	orig.SetSection(SectionSkills, "Go")

	clone := orig.Clone()
	clone.Languages[0] = "Tamil"
	clone.SetSection(SectionSkills, "Rust")

	assert.Equal(t, "english", orig.Languages[0])
	text, _ := orig.SectionText(SectionSkills)
	assert.Equal(t, "Go", text)

	var nilFields *StructuredFields
	assert.NotNil(t, nilFields.Clone())
}

func TestUsernameFromProfile(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"octocat", "octocat"},
		{"  octocat  ", "octocat"},
		{"https://github.com/octocat", "octocat"},
		{"github.com/octocat/hello-world", "octocat"},
		{"https://github.com", ""},
		{"https://www.linkedin.com/in/jane-doe/", "jane-doe"},
		{"leetcode.com/u/coder_42", "coder_42"},
		{"https://www.codechef.com/users/chef123", "chef123"},
		{"profiles/someone", "someone"},
		{"not a handle", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, UsernameFromProfile(tt.input))
		})
	}
}

func TestHandlesFromFields(t *testing.T) {
	fields := &StructuredFields{
		GitHub:   "https://github.com/asha",
		LeetCode: "leetcode.com/u/asha_lc",
	}

	handles := HandlesFromFields(fields, ProfileHandles{GitHub: "override"})
	assert.Equal(t, "override", handles.GitHub)
	assert.Equal(t, "asha_lc", handles.LeetCode)
	assert.Empty(t, handles.CodeChef)

	assert.Equal(t, ProfileHandles{}, HandlesFromFields(nil, ProfileHandles{}))
}
