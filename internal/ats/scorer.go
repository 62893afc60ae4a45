// Package ats implements the rule-based ATS compatibility score.
//
// A Scorer runs independent signal extractors over resume text and extracted
// fields, bounds each category to its cap and aggregates the categories into
// a total clamped to 100. Scoring is pure and safe for concurrent use.
package ats

import (
	"atscore/internal/types"
)

// Scorer scores resumes against a fixed set of tables.
type Scorer struct {
	tables    *compiledTables
	languages *LanguageNormalizer
}

// NewScorer compiles the tables. The tables are copied; later changes to
// the argument do not affect the scorer.
func NewScorer(tables Tables) (*Scorer, error) {
	compiled, err := compileTables(tables)
	if err != nil {
		return nil, err
	}
	return &Scorer{
		tables:    compiled,
		languages: NewLanguageNormalizer(tables.Languages),
	}, nil
}

// MustNewScorer is NewScorer for tables known to be valid.
func MustNewScorer(tables Tables) *Scorer {
	s, err := NewScorer(tables)
	if err != nil {
		panic(err)
	}
	return s
}

// Breakdown runs every extractor. A nil fields value counts as empty evidence,
// and an empty job description scores JD Match as 0.
func (s *Scorer) Breakdown(doc Document, fields *types.StructuredFields, jobDescription string) Breakdown {
	if fields == nil {
		fields = &types.StructuredFields{}
	}
	e := &evidence{doc: doc, fields: fields, jd: jobDescription}

	var b Breakdown
	for _, ex := range extractors {
		b.Set(ex.category, ex.score(s.tables, e))
	}
	return b
}

// NormalizeLanguages maps names through the scorer's language table.
func (s *Scorer) NormalizeLanguages(languages []string) []string {
	return s.languages.Normalize(languages)
}

// Score produces the full report for one resume.
func (s *Scorer) Score(text string, fields *types.StructuredFields, jobDescription string) Report {
	doc := NewDocument(text)
	breakdown := s.Breakdown(doc, fields, jobDescription)

	var languages []string
	if fields != nil {
		languages = s.languages.Normalize(fields.Languages)
	}
	return Assemble(breakdown, doc.WordCount(), languages)
}
