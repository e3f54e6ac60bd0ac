// Package waterfall implements the enrichment waterfall: an ordered
// strategy chain — heuristic, external API, LLM — that augments scraper
// output with inferred categorical fields (industry, employee/revenue
// band, founded year, contact name/title). The executor walks the chain
// and stops at the first strategy whose result clears its acceptance
// threshold, mirroring the teacher's waterfall-cascade control flow while
// replacing its time-decayed premium-source resolution with this
// enrichment domain.
package waterfall

import (
	"strings"

	"github.com/leadboost/leadpipe/internal/model"
)

// Fields holds the categorical fields the waterfall derives for a Lead.
// Zero values mean "not determined" except FoundedYear, which is nil.
type Fields struct {
	Industry     string
	Employees    model.EmployeeBand
	RevenueBand  model.RevenueBand
	FoundedYear  *int
	ContactName  string
	ContactTitle string
}

// Result is the outcome of one enrichment strategy attempt.
type Result struct {
	Success          bool
	Fields           Fields
	Method           model.Source // heuristic | external_api | llm
	Confidence       float64
	ProcessingTimeMS int64
	Error            string
}

// Input is the text available to an enrichment strategy: known lead
// fields plus the scraper's output map (title, description,
// og_description, text_content, jsonld.* keys).
type Input struct {
	CompanyName string
	AboutText   string
	Scraped     map[string]string
}

// aggregateText joins every text source the waterfall is allowed to read,
// for keyword and regex matching.
func (in Input) aggregateText() string {
	var parts []string
	for _, v := range []string{in.CompanyName, in.AboutText} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	for _, key := range []string{"text_content", "description", "og_description", "title"} {
		if v := in.Scraped[key]; v != "" {
			parts = append(parts, v)
		}
	}
	for k, v := range in.Scraped {
		if strings.HasPrefix(k, "jsonld.") && v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
