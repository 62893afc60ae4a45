package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Section names whose plain-text blocks count toward section coverage.
const (
	SectionExperience = "experience"
	SectionEducation  = "education"
	SectionSkills     = "skills"
	SectionProjects   = "projects"
)

// CoverageSections lists the sections checked for coverage, in scoring order.
var CoverageSections = []string{SectionExperience, SectionEducation, SectionSkills, SectionProjects}

// FlexString decodes any JSON scalar into its text form.
// Objects, arrays and null decode to the empty string.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = ""
		return nil
	}

	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(v)
	case 't', 'f':
		*s = FlexString(string(data))
	case 'n', '{', '[':
		*s = ""
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(n.String())
	}
	return nil
}

func (s FlexString) String() string { return string(s) }

// StringList decodes a JSON array of scalars. A scalar where a list is
// expected decodes to an empty list.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = StringList{}
		return nil
	}

	out := make(StringList, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] == '{' || item[0] == '[' || item[0] == 'n' {
			continue
		}
		var s FlexString
		_ = s.UnmarshalJSON(item)
		if v := strings.TrimSpace(s.String()); v != "" {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

// SchoolRecord is a secondary or higher-secondary education entry.
type SchoolRecord struct {
	School     FlexString `json:"school"`
	Location   FlexString `json:"location"`
	Year       FlexString `json:"year"`
	Percentage FlexString `json:"percentage"`
}

// PercentageValue returns the percentage as a number, 0 when missing or malformed.
func (r SchoolRecord) PercentageValue() float64 {
	return ParseNumericOrDefault(r.Percentage, 0)
}

// BachelorRecord is the undergraduate education entry.
type BachelorRecord struct {
	Institute          FlexString `json:"institute"`
	Location           FlexString `json:"location"`
	Degree             FlexString `json:"degree"`
	Department         FlexString `json:"department,omitempty"`
	ExpectedGraduation FlexString `json:"expected_graduation"`
	CGPA               FlexString `json:"cgpa"`
}

// CGPAValue returns the CGPA as a number, 0 when missing or malformed.
func (r BachelorRecord) CGPAValue() float64 {
	return ParseNumericOrDefault(r.CGPA, 0)
}

type Education struct {
	Tenth    SchoolRecord   `json:"10th"`
	Twelfth  SchoolRecord   `json:"12th"`
	Bachelor BachelorRecord `json:"bachelor"`
}

type Skills struct {
	Technical StringList `json:"technical"`
	Soft      StringList `json:"soft"`
}

// StructuredFields is the profile extracted from resume text by the
// structured extractor. Every field is optional.
type StructuredFields struct {
	Name         FlexString `json:"name"`
	Email        FlexString `json:"email"`
	Phone        FlexString `json:"phone"`
	LinkedIn     FlexString `json:"linkedin"`
	GitHub       FlexString `json:"github"`
	LeetCode     FlexString `json:"leetcode"`
	CodeChef     FlexString `json:"codechef"`
	Languages    StringList `json:"languages"`
	Education    Education  `json:"education"`
	Skills       Skills     `json:"skills"`
	Certificates StringList `json:"certificates"`
	RoleMatch    FlexString `json:"role_match"`
	Summary      FlexString `json:"summary"`

	// Sections holds plain-text section blocks keyed by lower-case section name.
	Sections map[string]string `json:"sections,omitempty"`
}

// SectionText returns the plain-text block for a section, if the extractor produced one.
func (f *StructuredFields) SectionText(name string) (string, bool) {
	if f == nil || f.Sections == nil {
		return "", false
	}
	text, ok := f.Sections[name]
	return text, ok
}

// SetSection stores a plain-text section block.
func (f *StructuredFields) SetSection(name, text string) {
	if f.Sections == nil {
		f.Sections = make(map[string]string)
	}
	f.Sections[strings.ToLower(name)] = text
}

type structuredFieldsAlias StructuredFields

// UnmarshalJSON decodes extractor output without failing on shape mismatches.
// Top-level string values for experience, education, skills and projects are
// kept as section text; structured values for education and skills populate
// the typed records.
func (f *StructuredFields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var decoded structuredFieldsAlias
	for key, value := range raw {
		value = bytes.TrimSpace(value)
		if len(value) == 0 {
			continue
		}

		switch strings.ToLower(key) {
		case "name":
			_ = decoded.Name.UnmarshalJSON(value)
		case "email":
			_ = decoded.Email.UnmarshalJSON(value)
		case "phone":
			_ = decoded.Phone.UnmarshalJSON(value)
		case "linkedin":
			_ = decoded.LinkedIn.UnmarshalJSON(value)
		case "github":
			_ = decoded.GitHub.UnmarshalJSON(value)
		case "leetcode":
			_ = decoded.LeetCode.UnmarshalJSON(value)
		case "codechef":
			_ = decoded.CodeChef.UnmarshalJSON(value)
		case "languages":
			_ = decoded.Languages.UnmarshalJSON(value)
		case "certificates":
			_ = decoded.Certificates.UnmarshalJSON(value)
		case "role_match":
			_ = decoded.RoleMatch.UnmarshalJSON(value)
		case "summary":
			_ = decoded.Summary.UnmarshalJSON(value)
		case SectionEducation:
			if !decodeSectionText(&decoded, SectionEducation, value) && value[0] == '{' {
				_ = json.Unmarshal(value, &decoded.Education)
			}
		case SectionSkills:
			if decodeSectionText(&decoded, SectionSkills, value) {
				continue
			}
			switch value[0] {
			case '{':
				_ = json.Unmarshal(value, &decoded.Skills)
			case '[':
				_ = decoded.Skills.Technical.UnmarshalJSON(value)
			}
		case SectionExperience, SectionProjects:
			decodeSectionText(&decoded, strings.ToLower(key), value)
		case "sections":
			var sections map[string]FlexString
			if err := json.Unmarshal(value, &sections); err == nil {
				for name, text := range sections {
					(*StructuredFields)(&decoded).SetSection(name, text.String())
				}
			}
		}
	}

	*f = StructuredFields(decoded)
	return nil
}

func decodeSectionText(f *structuredFieldsAlias, name string, value json.RawMessage) bool {
	if value[0] != '"' {
		return false
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return false
	}
	(*StructuredFields)(f).SetSection(name, text)
	return true
}

// Clone returns a deep copy so callers can adjust fields without touching the original.
func (f *StructuredFields) Clone() *StructuredFields {
	if f == nil {
		return &StructuredFields{}
	}
	out := *f
	out.Languages = append(StringList(nil), f.Languages...)
	out.Certificates = append(StringList(nil), f.Certificates...)
	out.Skills.Technical = append(StringList(nil), f.Skills.Technical...)
	out.Skills.Soft = append(StringList(nil), f.Skills.Soft...)
	if f.Sections != nil {
		out.Sections = make(map[string]string, len(f.Sections))
		for k, v := range f.Sections {
			out.Sections[k] = v
		}
	}
	return &out
}

// ParseStructuredFields decodes extractor JSON output.
func ParseStructuredFields(data []byte) (*StructuredFields, error) {
	var fields StructuredFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}
