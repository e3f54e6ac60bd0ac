package scorer

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/leadboost/leadpipe/internal/config"
)

// weightTolerance bounds how far a criteria list's weights may drift from
// 1.0, per spec.md §4.3 and the testable property in §8.
const weightTolerance = 0.01

// DefaultCriteria returns the default criteria list. An organization may
// override it via Validate + NewScorer; the sum of weights across the
// active criteria list must stay within weightTolerance of 1.0.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{Name: "industry_match", Weight: 0.25, MaxScore: 25, Threshold: 0.5, Description: "Industry is in the qualifying set"},
		{Name: "company_size", Weight: 0.20, MaxScore: 20, Threshold: 0.5, Description: "Employee band is in the qualifying range"},
		{Name: "email_quality", Weight: 0.15, MaxScore: 15, Threshold: 0.6, Description: "Email extraction confidence"},
		{Name: "scrape_quality", Weight: 0.15, MaxScore: 15, Threshold: 0.6, Description: "Scrape extraction confidence"},
		{Name: "enrichment_quality", Weight: 0.15, MaxScore: 15, Threshold: 0.6, Description: "Enrichment confidence"},
		{Name: "linkedin_presence", Weight: 0.10, MaxScore: 10, Threshold: 0.5, Description: "LinkedIn URL present"},
	}
}

// CriteriaFromConfig builds the default criteria list with weights
// overridden from cfg, preserving each criterion's max_score/threshold.
// Organizations that need entirely different criteria call New directly
// with their own list; this helper only covers the startup default.
func CriteriaFromConfig(cfg config.ScoringConfig) []Criterion {
	criteria := DefaultCriteria()
	weights := map[string]float64{
		"industry_match":      cfg.IndustryMatchWeight,
		"company_size":        cfg.CompanySizeWeight,
		"email_quality":       cfg.EmailQualityWeight,
		"scrape_quality":      cfg.ScrapeQualityWeight,
		"enrichment_quality":  cfg.EnrichmentQualityWeight,
		"linkedin_presence":   cfg.LinkedInPresenceWeight,
	}
	for i, c := range criteria {
		if w, ok := weights[c.Name]; ok && w > 0 {
			criteria[i].Weight = w
		}
	}
	return criteria
}

// WeightSum returns the sum of weights across criteria.
func WeightSum(criteria []Criterion) float64 {
	var sum float64
	for _, c := range criteria {
		sum += c.Weight
	}
	return sum
}

// Validate checks that every criterion names a registered evaluator and
// that the weights sum to 1.0 within tolerance.
func Validate(criteria []Criterion) error {
	if len(criteria) == 0 {
		return eris.New("scorer: criteria list must not be empty")
	}
	for _, c := range criteria {
		if _, ok := evaluatorRegistry[c.Name]; !ok {
			return eris.Newf("scorer: criterion %q has no registered evaluator", c.Name)
		}
		if c.Weight < 0 {
			return eris.Newf("scorer: criterion %q has negative weight", c.Name)
		}
	}
	sum := WeightSum(criteria)
	if math.Abs(sum-1.0) > weightTolerance {
		return eris.Newf("scorer: criteria weights must sum to 1.0 +/- %.2f, got %.4f", weightTolerance, sum)
	}
	return nil
}
