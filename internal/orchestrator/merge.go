package orchestrator

import (
	"strings"

	"github.com/leadboost/leadpipe/internal/model"
)

// firstNonEmpty returns the value of the first key in data (tried in
// order) that is present and non-empty.
func firstNonEmpty(data map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// findLinkedInURL scans every value in data for the first substring that
// looks like a linkedin.com URL, regardless of which tier's key it came
// from (a plain "links" list, or a JSON-LD "sameAs" array).
func findLinkedInURL(data map[string]string) string {
	for _, v := range data {
		for _, candidate := range strings.Split(v, ",") {
			candidate = strings.TrimSpace(candidate)
			if strings.Contains(candidate, "linkedin.com") {
				return candidate
			}
		}
	}
	return ""
}

// mergeScrapedFields applies a successful scrape Result's data onto lead,
// per spec.md §4.6 step 2. Tiers name their fields differently (JSON-LD's
// flattened schema.org keys vs. the meta/plain tiers' title/description),
// so each target field tries its tier-specific key names in order of
// preference.
func mergeScrapedFields(lead *model.Lead, data map[string]string, confidence float64, source model.Source) {
	if name := firstNonEmpty(data, "name", "legalName", "title", "company_name_guess"); name != "" {
		lead.CompanyName = name
	}
	if about := firstNonEmpty(data, "description", "og_description", "text_content"); about != "" {
		lead.AboutText = about
	}
	if email := firstNonEmpty(data, "email"); email != "" {
		lead.Email = email
	}
	if phone := firstNonEmpty(data, "phone", "telephone"); phone != "" {
		lead.Phone = phone
	}
	if linkedin := findLinkedInURL(data); linkedin != "" {
		lead.LinkedInURL = linkedin
	}
	lead.ScrapeConfidence = confidence
	lead.ScrapeSource = source
}
