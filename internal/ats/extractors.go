package ats

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"atscore/internal/types"
)

// Thresholds and weights of the individual signals.
const (
	sectionMinChars   = 50
	sectionPoints     = 10.0
	contactPoints     = 5.0
	wordCountIdealMin = 350
	wordCountIdealMax = 900
	wordCountMin      = 200
	longLineChars     = 180
	tablePenalty      = 10
	imagePenalty      = 10
	longLinePenalty   = 5
	techWeight        = 1.5
	toolWeight        = 1.2
	softWeight        = 2.0
	certWeight        = 5.0
	jdTokenWeight     = 0.5
)

var (
	tableTag     = regexp.MustCompile(`<table|</table>`)
	imageFileRef = regexp.MustCompile(`\.(png|jpg|jpeg|svg)`)
)

// evidence is the read-only input every extractor sees.
type evidence struct {
	doc    Document
	fields *types.StructuredFields
	jd     string
}

// extractor scores one category. Extractors share no state.
type extractor struct {
	category Category
	score    func(t *compiledTables, e *evidence) float64
}

var extractors = []extractor{
	{SectionCoverage, sectionCoverage},
	{ContactInfo, contactInfo},
	{WordCount, wordCountScore},
	{BulletPoints, bulletPoints},
	{ActionVerbs, actionVerbs},
	{Achievements, achievements},
	{TechnicalSkills, keywordScore(func(t *compiledTables) []string { return t.tech }, techWeight)},
	{ToolsPlatforms, keywordScore(func(t *compiledTables) []string { return t.tools }, toolWeight)},
	{SoftSkills, keywordScore(func(t *compiledTables) []string { return t.soft }, softWeight)},
	{Certifications, keywordScore(func(t *compiledTables) []string { return t.certs }, certWeight)},
	{Formatting, formatting},
	{JDMatch, jdMatch},
}

func sectionCoverage(_ *compiledTables, e *evidence) float64 {
	var score float64
	for _, name := range types.CoverageSections {
		text, ok := e.fields.SectionText(name)
		if ok && utf8.RuneCountInString(strings.TrimSpace(text)) > sectionMinChars {
			score += sectionPoints
		}
	}
	return score
}

func contactInfo(_ *compiledTables, e *evidence) float64 {
	var score float64
	if strings.TrimSpace(e.fields.Email.String()) != "" {
		score += contactPoints
	}
	if strings.TrimSpace(e.fields.Phone.String()) != "" {
		score += contactPoints
	}
	if strings.Contains(e.doc.Lower, "linkedin.com") {
		score += contactPoints
	}
	if strings.Contains(e.doc.Lower, "github.com") {
		score += contactPoints
	}
	return score
}

func wordCountScore(_ *compiledTables, e *evidence) float64 {
	n := e.doc.WordCount()
	switch {
	case n >= wordCountIdealMin && n <= wordCountIdealMax:
		return 10
	case n > wordCountMin:
		return 5
	}
	return 0
}

func bulletPoints(t *compiledTables, e *evidence) float64 {
	count := 0
	for _, re := range t.bullets {
		count += len(re.FindAllStringIndex(e.doc.Raw, -1))
	}
	return tiered(count, 5, 2)
}

func actionVerbs(t *compiledTables, e *evidence) float64 {
	if t.verbs == nil {
		return 0
	}
	return tiered(len(t.verbs.FindAllStringIndex(e.doc.Lower, -1)), 10, 4)
}

func achievements(t *compiledTables, e *evidence) float64 {
	return tiered(len(t.metrics.FindAllStringIndex(e.doc.Lower, -1)), 6, 2)
}

// keywordScore counts distinct keywords present as substrings of the lower-cased text.
func keywordScore(list func(*compiledTables) []string, weight float64) func(*compiledTables, *evidence) float64 {
	return func(t *compiledTables, e *evidence) float64 {
		hits := 0
		for _, kw := range list(t) {
			if strings.Contains(e.doc.Lower, kw) {
				hits++
			}
		}
		return float64(hits) * weight
	}
}

func formatting(_ *compiledTables, e *evidence) float64 {
	penalty := 0
	if tableTag.MatchString(e.doc.Lower) {
		penalty += tablePenalty
	}
	if imageFileRef.MatchString(e.doc.Lower) {
		penalty += imagePenalty
	}
	if e.doc.LongestLineLen() > longLineChars {
		penalty += longLinePenalty
	}
	if penalty >= 10 {
		return 0
	}
	return float64(10 - penalty)
}

func jdMatch(_ *compiledTables, e *evidence) float64 {
	if e.jd == "" {
		return 0
	}
	jdTokens := tokenSet(strings.ToLower(e.jd))
	resumeTokens := e.doc.AlphaTokens()

	shared := 0
	for tok := range jdTokens {
		if _, ok := resumeTokens[tok]; ok {
			shared++
		}
	}
	return float64(shared) * jdTokenWeight
}

// tiered maps a count to 10, 5 or 0 using the high and low thresholds.
func tiered(count, high, low int) float64 {
	switch {
	case count >= high:
		return 10
	case count >= low:
		return 5
	}
	return 0
}
