package ats

import "strings"

// LanguageNormalizer maps free-form language names onto a canonical vocabulary.
type LanguageNormalizer struct {
	canonical map[string]string
}

// NewLanguageNormalizer builds a normalizer from canonical display names.
// Lookups are case-insensitive.
func NewLanguageNormalizer(names []string) *LanguageNormalizer {
	canonical := make(map[string]string, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		canonical[strings.ToLower(name)] = name
	}
	return &LanguageNormalizer{canonical: canonical}
}

// Normalize returns the recognized languages in first-seen order without duplicates.
// Unrecognized names are dropped. The result is never nil.
func (n *LanguageNormalizer) Normalize(languages []string) []string {
	out := make([]string, 0, len(languages))
	seen := make(map[string]bool, len(languages))
	for _, lang := range languages {
		name, ok := n.canonical[strings.ToLower(strings.TrimSpace(lang))]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

var defaultNormalizer = NewLanguageNormalizer(DefaultTables().Languages)

// NormalizeLanguages normalizes with the built-in language table.
func NormalizeLanguages(languages []string) []string {
	return defaultNormalizer.Normalize(languages)
}
