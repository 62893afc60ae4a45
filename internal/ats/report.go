package ats

// DefaultLanguage is reported when no recognized language was extracted.
const DefaultLanguage = "English"

// Report is the scoring result returned to callers and persisted.
type Report struct {
	Breakdown Breakdown `json:"ats_breakdown"`
	Score     float64   `json:"ats_score"`
	WordCount int       `json:"word_count"`
	Languages []string  `json:"languages"`
}

// Assemble packages a breakdown with its metadata. An empty language list
// falls back to DefaultLanguage.
func Assemble(breakdown Breakdown, wordCount int, languages []string) Report {
	langs := make([]string, len(languages))
	copy(langs, languages)
	if len(langs) == 0 {
		langs = []string{DefaultLanguage}
	}
	if wordCount < 0 {
		wordCount = 0
	}

	return Report{
		Breakdown: breakdown,
		Score:     breakdown.Total(),
		WordCount: wordCount,
		Languages: langs,
	}
}
