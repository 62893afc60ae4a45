// Package screening filters processed resumes against recruiter criteria.
package screening

import (
	stderrors "errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"atscore/internal/ats"
	"atscore/internal/errors"
	"atscore/internal/types"
)

var validate = validator.New()

// Criteria are the bulk filter thresholds. A zero numeric threshold and an
// empty string or list disable the filter.
type Criteria struct {
	MinCGPA    float64  `json:"cgpa,omitempty" validate:"omitempty,gte=0,lte=10"`
	MinTenth   float64  `json:"tenth,omitempty" validate:"omitempty,gte=0,lte=100"`
	MinTwelfth float64  `json:"twelfth,omitempty" validate:"omitempty,gte=0,lte=100"`
	MinATS     float64  `json:"ats,omitempty" validate:"omitempty,gte=0,lte=100"`
	Skills     []string `json:"skills,omitempty" validate:"dive,required"`
	Language   string   `json:"language,omitempty"`
	Department string   `json:"department,omitempty"`
	Degree     string   `json:"degree,omitempty"`
}

// Form field names accepted by ParseCriteria.
const (
	FieldCGPA       = "cgpa"
	FieldTenth      = "tenth"
	FieldTwelfth    = "twelfth"
	FieldATS        = "ats"
	FieldSkills     = "skills"
	FieldLanguage   = "language"
	FieldDepartment = "department"
	FieldDegree     = "degree"
)

// ParseCriteria reads filters from form values. If any numeric value fails
// to parse, all four numeric filters are cleared. Skills are a comma
// separated list compared case-insensitively.
func ParseCriteria(form map[string]string) (Criteria, error) {
	c := Criteria{
		Language:   strings.TrimSpace(form[FieldLanguage]),
		Department: strings.TrimSpace(form[FieldDepartment]),
		Degree:     strings.TrimSpace(form[FieldDegree]),
		Skills:     splitSkills(form[FieldSkills]),
	}

	numeric := []struct {
		key  string
		dest *float64
	}{
		{FieldCGPA, &c.MinCGPA},
		{FieldTenth, &c.MinTenth},
		{FieldTwelfth, &c.MinTwelfth},
		{FieldATS, &c.MinATS},
	}
	for _, n := range numeric {
		raw := strings.TrimSpace(form[n.key])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.MinCGPA, c.MinTenth, c.MinTwelfth, c.MinATS = 0, 0, 0, 0
			break
		}
		*n.dest = v
	}

	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func splitSkills(raw string) []string {
	var skills []string
	for s := range strings.SplitSeq(raw, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// Validate checks the numeric ranges.
func (c Criteria) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid filter criteria", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest,
		"invalid filter criteria: "+strings.Join(problems, "; "), err)
}

// Candidate is one processed resume offered to the filter.
type Candidate struct {
	Filename string
	Fields   *types.StructuredFields
	Report   ats.Report
}

// Match is a candidate that passed every filter.
type Match struct {
	Filename  string          `json:"filename"`
	Name      string          `json:"name"`
	ATSScore  float64         `json:"ats_score"`
	Education types.Education `json:"education"`
	Skills    types.Skills    `json:"skills"`
	Languages []string        `json:"languages"`
}

// Evaluate applies the criteria. Missing numeric evidence counts as 0.
func (c Criteria) Evaluate(cand Candidate) (Match, bool) {
	fields := cand.Fields
	if fields == nil {
		fields = &types.StructuredFields{}
	}
	edu := fields.Education

	languages := make([]string, 0, len(cand.Report.Languages))
	for _, l := range cand.Report.Languages {
		languages = append(languages, strings.ToLower(l))
	}

	switch {
	case c.MinCGPA > 0 && edu.Bachelor.CGPAValue() < c.MinCGPA:
		return Match{}, false
	case c.MinTenth > 0 && edu.Tenth.PercentageValue() < c.MinTenth:
		return Match{}, false
	case c.MinTwelfth > 0 && edu.Twelfth.PercentageValue() < c.MinTwelfth:
		return Match{}, false
	case c.MinATS > 0 && cand.Report.Score < c.MinATS:
		return Match{}, false
	case c.Language != "" && !slices.Contains(languages, strings.ToLower(c.Language)):
		return Match{}, false
	case c.Department != "" && !containsFold(bachelorText(edu.Bachelor), c.Department):
		return Match{}, false
	case c.Degree != "" && !containsFold(bachelorText(edu.Bachelor), c.Degree):
		return Match{}, false
	case !hasAllSkills(fields.Skills.Technical, c.Skills):
		return Match{}, false
	}

	return Match{
		Filename:  cand.Filename,
		Name:      fields.Name.String(),
		ATSScore:  cand.Report.Score,
		Education: edu,
		Skills:    fields.Skills,
		Languages: languages,
	}, true
}

func bachelorText(b types.BachelorRecord) string {
	return strings.TrimSpace(b.Degree.String() + " " + b.Department.String())
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func hasAllSkills(technical types.StringList, required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(technical))
	for _, s := range technical {
		have[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	for _, s := range required {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}
