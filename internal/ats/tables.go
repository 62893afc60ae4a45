package ats

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tables holds the keyword and pattern tables the signal extractors scan for.
// A Tables value is configuration: the scorer copies and compiles it once.
type Tables struct {
	TechKeywords   []string `yaml:"tech_keywords" json:"tech_keywords"`
	ToolKeywords   []string `yaml:"tool_keywords" json:"tool_keywords"`
	SoftSkills     []string `yaml:"soft_skills" json:"soft_skills"`
	Certifications []string `yaml:"certifications" json:"certifications"`
	ActionVerbs    []string `yaml:"action_verbs" json:"action_verbs"`
	Languages      []string `yaml:"languages" json:"languages"`

	// BulletPatterns are regular expressions matched against the raw text.
	BulletPatterns []string `yaml:"bullet_patterns" json:"bullet_patterns"`
	// MetricsPattern matches quantified achievements in lower-cased text.
	MetricsPattern string `yaml:"metrics_pattern" json:"metrics_pattern"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() Tables {
	return Tables{
		TechKeywords: []string{
			"python", "java", "c++", "node", "react", "mongodb", "mysql", "aws", "azure", "gcp", "docker", "kubernetes",
			"tensorflow", "pytorch", "devops", "fastapi", "django", "flask", "typescript", "postgres", "rest", "graphql",
		},
		ToolKeywords: []string{
			"git", "github", "jira", "jenkins", "figma", "linux", "bash", "tableau", "power bi", "excel", "visual studio", "colab",
		},
		SoftSkills:     []string{"leadership", "communication", "teamwork", "problem solving", "ownership"},
		Certifications: []string{"aws", "azure", "gcp", "oracle", "pmp", "cisco", "scrum", "microsoft certified"},
		ActionVerbs: []string{
			"developed", "built", "designed", "implemented", "managed", "optimized", "increased", "reduced", "led",
			"collaborated", "deployed", "created", "trained", "improved", "tested", "analyzed", "automated",
			"integrated", "streamlined",
		},
		Languages: []string{
			"English", "Tamil", "Hindi", "Telugu", "Malayalam", "Kannada", "French", "German", "Spanish",
			"Bengali", "Marathi", "Punjabi", "Gujarati", "Urdu", "Oriya", "Nepali",
		},
		BulletPatterns: []string{`•`, `◦`, `\*`, `-[\s\v\p{Z}]`, `→`},
		MetricsPattern: `\b\d+%|\$\d+\b|\b\d+\s+(?:users|clients|projects|transactions|systems)\b|\b\d+\s+(?:x|times|months|years)\b`,
	}
}

// LoadTables reads tables from a YAML file. Lists missing from the file
// keep their default values.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read scoring tables %s: %w", path, err)
	}
	return ParseTables(data)
}

// ParseTables decodes YAML tables on top of the defaults.
func ParseTables(data []byte) (Tables, error) {
	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Tables{}, fmt.Errorf("failed to parse scoring tables: %w", err)
	}

	tables := DefaultTables()
	if override.TechKeywords != nil {
		tables.TechKeywords = override.TechKeywords
	}
	if override.ToolKeywords != nil {
		tables.ToolKeywords = override.ToolKeywords
	}
	if override.SoftSkills != nil {
		tables.SoftSkills = override.SoftSkills
	}
	if override.Certifications != nil {
		tables.Certifications = override.Certifications
	}
	if override.ActionVerbs != nil {
		tables.ActionVerbs = override.ActionVerbs
	}
	if override.Languages != nil {
		tables.Languages = override.Languages
	}
	if override.BulletPatterns != nil {
		tables.BulletPatterns = override.BulletPatterns
	}
	if override.MetricsPattern != "" {
		tables.MetricsPattern = override.MetricsPattern
	}

	if err := tables.Validate(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

// Validate checks that every pattern compiles and no list holds blank entries.
func (t Tables) Validate() error {
	lists := map[string][]string{
		"tech_keywords":  t.TechKeywords,
		"tool_keywords":  t.ToolKeywords,
		"soft_skills":    t.SoftSkills,
		"certifications": t.Certifications,
		"action_verbs":   t.ActionVerbs,
		"languages":      t.Languages,
	}
	for name, list := range lists {
		for i, item := range list {
			if strings.TrimSpace(item) == "" {
				return fmt.Errorf("scoring tables: %s[%d] is blank", name, i)
			}
		}
	}

	for i, p := range t.BulletPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("scoring tables: bullet_patterns[%d]: %w", i, err)
		}
	}
	if _, err := regexp.Compile(t.MetricsPattern); err != nil {
		return fmt.Errorf("scoring tables: metrics_pattern: %w", err)
	}
	return nil
}

// compiledTables is the immutable, lower-cased form the extractors read.
type compiledTables struct {
	tech    []string
	tools   []string
	soft    []string
	certs   []string
	verbs   *regexp.Regexp
	bullets []*regexp.Regexp
	metrics *regexp.Regexp
}

func compileTables(t Tables) (*compiledTables, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	c := &compiledTables{
		tech:  lowerAll(t.TechKeywords),
		tools: lowerAll(t.ToolKeywords),
		soft:  lowerAll(t.SoftSkills),
		certs: lowerAll(t.Certifications),
	}

	if len(t.ActionVerbs) > 0 {
		quoted := make([]string, len(t.ActionVerbs))
		for i, v := range t.ActionVerbs {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(v)))
		}
		c.verbs = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}

	for _, p := range t.BulletPatterns {
		c.bullets = append(c.bullets, regexp.MustCompile(p))
	}
	c.metrics = regexp.MustCompile(t.MetricsPattern)

	return c, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
