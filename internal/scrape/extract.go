package scrape

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxBodyChars bounds the body text collected by the headless and
// plain-request tiers.
const maxBodyChars = 8000

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
)

// pageExtraction is the common field set collected by both the headless
// tier (from the rendered DOM) and the plain-request fallback (from the
// served HTML) — the two tiers differ only in how the HTML was obtained.
type pageExtraction struct {
	Title       string
	Description string
	JSONLD      map[string]string
	BodyText    string
	Links       []string
	Email       string
	Phone       string
	CompanyName string
}

func extractFromHTML(html, pageURL string) pageExtraction {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return pageExtraction{}
	}

	ex := pageExtraction{}
	ex.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if d, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		ex.Description = d
	}
	if ex.Description == "" {
		if d, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
			ex.Description = d
		}
	}

	jsonld := map[string]string{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err == nil {
			flattenJSONLD("", raw, jsonld)
		}
	})
	ex.JSONLD = jsonld

	body := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}
	ex.BodyText = body

	ex.Links = absoluteLinks(doc, pageURL)

	if m := emailRe.FindString(body); m != "" {
		ex.Email = m
	}
	if m := phoneRe.FindString(body); m != "" {
		ex.Phone = m
	}

	ex.CompanyName = companyNameFromURL(pageURL)

	return ex
}

// companyNameFromURL derives a best-effort company name from the site's
// registrable domain label, e.g. "https://acme.io" -> "Acme".
func companyNameFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	parts := strings.Split(host, ".")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	name := parts[0]
	return strings.ToUpper(name[:1]) + name[1:]
}

// pageConfidence scores a headless/fallback extraction per the confidence
// formula in spec.md §4.1 (headless base case; the fallback tier applies
// an additional ×0.8 multiplier at the call site).
func pageConfidence(ex pageExtraction) float64 {
	c := 0.3
	if ex.Title != "" {
		c += 0.2
	}
	if ex.Description != "" {
		c += 0.2
	}
	if ex.Email != "" {
		c += 0.2
	}
	if ex.Phone != "" {
		c += 0.1
	}
	if len(ex.Links) > 5 {
		c += 0.1
	}
	if ex.CompanyName != "" {
		c += 0.1
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// toResultData flattens a pageExtraction into the Result.Data string map
// shared by the headless and plain-request tiers.
func toResultData(ex pageExtraction) map[string]string {
	data := map[string]string{}
	if ex.Title != "" {
		data["title"] = ex.Title
	}
	if ex.Description != "" {
		data["description"] = ex.Description
	}
	if ex.BodyText != "" {
		data["text_content"] = ex.BodyText
	}
	if ex.Email != "" {
		data["email"] = ex.Email
	}
	if ex.Phone != "" {
		data["phone"] = ex.Phone
	}
	if ex.CompanyName != "" {
		data["company_name_guess"] = ex.CompanyName
	}
	if len(ex.Links) > 0 {
		data["links"] = strings.Join(ex.Links, ",")
	}
	for k, v := range ex.JSONLD {
		data["jsonld."+k] = v
	}
	return data
}
