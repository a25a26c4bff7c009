package scoring

import (
	"strconv"
	"strings"
)

const (
	FactorExperience    = "experience"
	FactorInternship    = "internship"
	FactorCertification = "certification"
)

// Factor is a rule-based signal derived from a candidate's raw text.
type Factor interface {
	Name() string
	// Weight picks the factor's percentage out of the configuration.
	Weight(w Weights) int
	// Value returns the factor for a text in the range 0..1.
	Value(text string) float64
}

// keywordFactor is 1 when the keyword occurs anywhere in the text, case-insensitively.
// Word boundaries are ignored, so "certifications" counts.
type keywordFactor struct {
	keyword string
	weight  func(Weights) int
}

func (f keywordFactor) Name() string { return f.keyword }

func (f keywordFactor) Weight(w Weights) int { return f.weight(w) }

func (f keywordFactor) Value(text string) float64 {
	if strings.Contains(strings.ToLower(text), f.keyword) {
		return 1
	}
	return 0
}

// KeywordFactors returns the experience, internship and certification factors.
func KeywordFactors() []Factor {
	return []Factor{
		keywordFactor{keyword: FactorExperience, weight: func(w Weights) int { return w.Experience }},
		keywordFactor{keyword: FactorInternship, weight: func(w Weights) int { return w.Internship }},
		keywordFactor{keyword: FactorCertification, weight: func(w Weights) int { return w.Certification }},
	}
}

// Status describes a scoring component and its current weight.
type Status struct {
	Name    string
	Weight  int
	Details map[string]string
}

// Describe lists the skill similarity term followed by each factor.
func Describe(factors []Factor, w Weights, q Query) []Status {
	statuses := make([]Status, 0, len(factors)+1)
	statuses = append(statuses, Status{
		Name:   "skill",
		Weight: w.Skill,
		Details: map[string]string{
			"kind":   "cosine similarity averaged over terms",
			"terms":  strconv.Itoa(q.Len()),
			"skills": q.String(),
		},
	})

	for _, f := range factors {
		details := map[string]string{"kind": "keyword presence"}
		if kf, ok := f.(keywordFactor); ok {
			details["keyword"] = kf.keyword
		}
		statuses = append(statuses, Status{Name: f.Name(), Weight: f.Weight(w), Details: details})
	}
	return statuses
}
