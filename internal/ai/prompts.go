package ai

import (
	"strings"
	"unicode/utf8"
)

// DefaultSystemPrompt is the system instruction for resume extraction.
const DefaultSystemPrompt = `You extract structured information from resumes. Return valid JSON only.
Copy values from the resume text. Never invent data that is not present; leave a field empty instead.`

// DefaultUserPrompt is the extraction request. %s is replaced with the resume text.
const DefaultUserPrompt = `Extract structured resume info and return valid JSON ONLY:
{
  "name": "",
  "email": "",
  "phone": "",
  "linkedin": "",
  "github": "",
  "leetcode": "",
  "codechef": "",
  "languages": [],
  "education": {
      "10th": {"school": "", "location": "", "year": "", "percentage": ""},
      "12th": {"school": "", "location": "", "year": "", "percentage": ""},
      "bachelor": {
          "institute": "",
          "location": "",
          "degree": "",
          "department": "",
          "expected_graduation": "",
          "cgpa": ""
      }
  },
  "skills": {"technical": [], "soft": []},
  "experience": "",
  "projects": "",
  "certificates": [],
  "role_match": "",
  "summary": ""
}
"experience" and "projects" are the plain text of those resume sections, empty when absent.
"languages" lists spoken languages only.
Resume text:
%s`

// BuildExtractionPrompt fills the user prompt template with the resume
// text, truncated to maxChars runes when maxChars is positive.
func BuildExtractionPrompt(template, text string, maxChars int) string {
	if template == "" {
		template = DefaultUserPrompt
	}
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		text = string([]rune(text)[:maxChars])
	}
	if !strings.Contains(template, "%s") {
		return template + "\n" + text
	}
	return strings.Replace(template, "%s", text, 1)
}

// resolvePrompt returns the configured prompt or the default.
func resolvePrompt(fromConfig, fromDefault string) string {
	if strings.TrimSpace(fromConfig) != "" {
		return fromConfig
	}
	return fromDefault
}
