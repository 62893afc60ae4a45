package ats

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Category is one scored dimension of the breakdown.
type Category int

const (
	SectionCoverage Category = iota
	ContactInfo
	WordCount
	BulletPoints
	ActionVerbs
	Achievements
	TechnicalSkills
	ToolsPlatforms
	SoftSkills
	Certifications
	Formatting
	JDMatch
)

// TotalKey is the breakdown key holding the aggregated score.
const TotalKey = "Total ATS Score"

// MaxTotal is the ceiling applied to the summed categories.
const MaxTotal = 100.0

var categoryInfo = [...]struct {
	key string
	cap float64
}{
	SectionCoverage: {"Section Coverage", 30},
	ContactInfo:     {"Contact Info", 20},
	WordCount:       {"Word Count", 10},
	BulletPoints:    {"Bullet Points", 10},
	ActionVerbs:     {"Action Verbs", 10},
	Achievements:    {"Achievements", 10},
	TechnicalSkills: {"Technical Skills", 15},
	ToolsPlatforms:  {"Tools & Platforms", 10},
	SoftSkills:      {"Soft Skills Mention", 5},
	Certifications:  {"Certifications", 10},
	Formatting:      {"ATS Formatting Score", 10},
	JDMatch:         {"JD Match", 20},
}

// Categories returns every category in report order.
func Categories() []Category {
	out := make([]Category, len(categoryInfo))
	for i := range categoryInfo {
		out[i] = Category(i)
	}
	return out
}

// String returns the report key of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryInfo) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryInfo[c].key
}

// Cap returns the upper bound of the category.
func (c Category) Cap() float64 {
	if c < 0 || int(c) >= len(categoryInfo) {
		return 0
	}
	return categoryInfo[c].cap
}

// Breakdown holds one sub-score per category.
type Breakdown struct {
	SectionCoverage float64
	ContactInfo     float64
	WordCount       float64
	BulletPoints    float64
	ActionVerbs     float64
	Achievements    float64
	TechnicalSkills float64
	ToolsPlatforms  float64
	SoftSkills      float64
	Certifications  float64
	Formatting      float64
	JDMatch         float64
}

func (b *Breakdown) field(c Category) *float64 {
	switch c {
	case SectionCoverage:
		return &b.SectionCoverage
	case ContactInfo:
		return &b.ContactInfo
	case WordCount:
		return &b.WordCount
	case BulletPoints:
		return &b.BulletPoints
	case ActionVerbs:
		return &b.ActionVerbs
	case Achievements:
		return &b.Achievements
	case TechnicalSkills:
		return &b.TechnicalSkills
	case ToolsPlatforms:
		return &b.ToolsPlatforms
	case SoftSkills:
		return &b.SoftSkills
	case Certifications:
		return &b.Certifications
	case Formatting:
		return &b.Formatting
	case JDMatch:
		return &b.JDMatch
	}
	panic(fmt.Sprintf("ats: unknown category %d", int(c)))
}

// Get returns the sub-score of a category.
func (b Breakdown) Get(c Category) float64 {
	return *b.field(c)
}

// Set stores a sub-score, bounded to [0, cap].
func (b *Breakdown) Set(c Category, v float64) {
	*b.field(c) = bound(v, c.Cap())
}

// Sum adds every sub-score without clamping.
func (b Breakdown) Sum() float64 {
	var sum float64
	for _, c := range Categories() {
		sum += b.Get(c)
	}
	return sum
}

// Total sums the sub-scores, clamps to [0, MaxTotal] and rounds once to two decimals.
func (b Breakdown) Total() float64 {
	return round2(bound(b.Sum(), MaxTotal))
}

// MarshalJSON writes every category key plus TotalKey in report order.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for _, c := range Categories() {
		writeEntry(&sb, c.String(), b.Get(c))
		sb.WriteByte(',')
	}
	writeEntry(&sb, TotalKey, b.Total())
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

func writeEntry(sb *strings.Builder, key string, value float64) {
	k, _ := json.Marshal(key)
	v, _ := json.Marshal(value)
	sb.Write(k)
	sb.WriteByte(':')
	sb.Write(v)
}

// UnmarshalJSON reads a breakdown written by MarshalJSON. Unknown keys and
// the total are ignored; the total is always derived.
func (b *Breakdown) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Breakdown
	for _, c := range Categories() {
		if v, ok := raw[c.String()]; ok {
			out.Set(c, v)
		}
	}
	*b = out
	return nil
}

func bound(v, upper float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
