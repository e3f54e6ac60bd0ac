// Package scorer computes a 0-100 qualification score for a Lead from a
// weighted criteria list, and classifies the result into a qualification
// label. The criterion set is a closed registry of (name -> evaluator
// function) resolved at load time — a criterion override naming an
// unregistered evaluator fails Validate at startup, never silently scores
// zero at runtime, per the "dynamic dispatch on criterion name"
// re-architecture called out in spec.md §9.
package scorer

import (
	"fmt"

	"github.com/leadboost/leadpipe/internal/model"
)

// Criterion is one named, weighted scoring rule. Name must be a key in
// evaluatorRegistry.
type Criterion struct {
	Name        string
	Weight      float64
	MaxScore    float64
	Threshold   float64
	Description string
}

type evaluatorFunc func(lead model.Lead, c Criterion) float64

// evaluatorRegistry is the closed set of evaluators a Criterion.Name may
// reference.
var evaluatorRegistry = map[string]evaluatorFunc{
	"industry_match":     evalIndustryMatch,
	"company_size":       evalCompanySize,
	"email_quality":      evalEmailQuality,
	"scrape_quality":     evalScrapeQuality,
	"enrichment_quality": evalEnrichmentQuality,
	"linkedin_presence":  evalLinkedInPresence,
}

// qualifyingIndustries is the industry set that earns full points on the
// industry_match criterion.
var qualifyingIndustries = map[string]bool{
	"Software": true, "SaaS": true, "Technology": true, "Fintech": true,
	"Healthcare": true, "E-commerce": true, "AI": true, "Data": true,
}

// qualifyingEmployeeBands is the employee-band set that earns full points
// on the company_size criterion.
var qualifyingEmployeeBands = map[model.EmployeeBand]bool{
	model.Employees11To50:   true,
	model.Employees51To200:  true,
	model.Employees201To500: true,
}

func evalIndustryMatch(lead model.Lead, c Criterion) float64 {
	if qualifyingIndustries[lead.Industry] {
		return c.MaxScore
	}
	return 0
}

func evalCompanySize(lead model.Lead, c Criterion) float64 {
	if qualifyingEmployeeBands[lead.Employees] {
		return c.MaxScore
	}
	return 0
}

func evalEmailQuality(lead model.Lead, c Criterion) float64 {
	if lead.EmailConfidence >= c.Threshold {
		return c.MaxScore * lead.EmailConfidence
	}
	return 0
}

func evalScrapeQuality(lead model.Lead, c Criterion) float64 {
	if lead.ScrapeConfidence >= c.Threshold {
		return c.MaxScore * lead.ScrapeConfidence
	}
	return 0
}

func evalEnrichmentQuality(lead model.Lead, c Criterion) float64 {
	if lead.EnrichmentConfidence >= c.Threshold {
		return c.MaxScore * lead.EnrichmentConfidence
	}
	return 0
}

func evalLinkedInPresence(lead model.Lead, c Criterion) float64 {
	if lead.LinkedInURL != "" {
		return c.MaxScore
	}
	return 0
}

// evaluate resolves c.Name in the registry and runs it against lead.
func (c Criterion) evaluate(lead model.Lead) (float64, error) {
	fn, ok := evaluatorRegistry[c.Name]
	if !ok {
		return 0, fmt.Errorf("scorer: unknown criterion %q", c.Name)
	}
	return fn(lead, c), nil
}
