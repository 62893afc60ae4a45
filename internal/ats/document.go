package ats

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var alphaToken = regexp.MustCompile(`[a-zA-Z]+`)

// Document is resume or job-description text prepared for pattern matching.
type Document struct {
	Raw   string
	Lower string
	words []string
}

// NewDocument normalizes text once so every extractor scans the same views.
func NewDocument(text string) Document {
	return Document{
		Raw:   text,
		Lower: strings.ToLower(text),
		words: strings.Fields(text),
	}
}

// Words returns the whitespace-delimited tokens of the raw text.
func (d Document) Words() []string { return d.words }

func (d Document) WordCount() int { return len(d.words) }

// Lines splits the raw text on newlines.
func (d Document) Lines() []string { return strings.Split(d.Raw, "\n") }

// LongestLineLen returns the length in characters of the longest line.
func (d Document) LongestLineLen() int {
	longest := 0
	for _, line := range d.Lines() {
		if n := utf8.RuneCountInString(line); n > longest {
			longest = n
		}
	}
	return longest
}

// AlphaTokens returns the set of ASCII alphabetic runs in the lower-cased text.
func (d Document) AlphaTokens() map[string]struct{} {
	return tokenSet(d.Lower)
}

func tokenSet(lower string) map[string]struct{} {
	tokens := alphaToken.FindAllString(lower, -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
