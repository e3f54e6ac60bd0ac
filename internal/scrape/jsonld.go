package scrape

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadboost/leadpipe/internal/model"
)

// businessProperties are the schema.org keys the JSON-LD tier rewards with
// an extra 0.1 confidence each when present, per the confidence formula.
var businessProperties = []string{
	"employeeCount", "revenue", "founded", "industry",
	"contactPoint", "location", "logo",
}

// tryJSONLD parses every application/ld+json block on the page and
// flattens them into a single dotted-key map.
func (s *Scraper) tryJSONLD(pageURL, html string) *Result {
	start := time.Now()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &Result{Method: string(model.SourceJSONLD), Error: err.Error(), ProcessingTimeMS: sinceMS(start)}
	}

	data := map[string]string{}
	found := false
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
			return
		}
		found = true
		flattenJSONLD("", raw, data)
	})
	if !found {
		return &Result{Method: string(model.SourceJSONLD), ProcessingTimeMS: sinceMS(start)}
	}

	confidence := jsonLDConfidence(data)
	return &Result{
		Success:          confidence > 0,
		Data:             data,
		Method:           string(model.SourceJSONLD),
		Confidence:       confidence,
		ProcessingTimeMS: sinceMS(start),
	}
}

// flattenJSONLD recursively flattens a decoded JSON-LD value into out,
// joining nested object keys with dots (e.g. "address.streetAddress").
func flattenJSONLD(prefix string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenJSONLD(key, t[k], out)
		}
	case []any:
		for i, item := range t {
			flattenJSONLD(fmt.Sprintf("%s.%d", prefix, i), item, out)
		}
	case string:
		if prefix != "" && t != "" {
			out[prefix] = t
		}
	case float64, bool:
		if prefix != "" {
			out[prefix] = fmt.Sprintf("%v", t)
		}
	}
}

func jsonLDConfidence(data map[string]string) float64 {
	has := func(needle string) bool {
		needle = strings.ToLower(needle)
		for key := range data {
			if strings.Contains(strings.ToLower(key), needle) {
				return true
			}
		}
		return false
	}

	var c float64
	if has("name") || has("legalName") {
		c += 0.3
	}
	if has("description") {
		c += 0.2
	}
	if has("url") {
		c += 0.1
	}
	if has("email") || has("telephone") {
		c += 0.1
	}
	if has("address") {
		c += 0.2
	}
	if has("foundingDate") {
		c += 0.1
	}
	for _, prop := range businessProperties {
		if has(prop) {
			c += 0.1
		}
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}
