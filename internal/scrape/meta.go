package scrape

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadboost/leadpipe/internal/model"
)

// tryMeta extracts <title>, <meta name=description>, all og:*/twitter:*
// tags, and absolute outbound links from the already-fetched HTML.
func (s *Scraper) tryMeta(pageURL, html string) *Result {
	start := time.Now()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &Result{Method: string(model.SourceStructuredData), Error: err.Error(), ProcessingTimeMS: sinceMS(start)}
	}

	data := map[string]string{}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		data["title"] = t
	}
	if d, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && d != "" {
		data["description"] = d
	}

	doc.Find("meta[property]").Each(func(_ int, sel *goquery.Selection) {
		prop, _ := sel.Attr("property")
		if !strings.HasPrefix(prop, "og:") {
			return
		}
		if content, ok := sel.Attr("content"); ok && content != "" {
			data["og_"+strings.TrimPrefix(prop, "og:")] = content
		}
	})
	doc.Find("meta[name]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		if !strings.HasPrefix(name, "twitter:") {
			return
		}
		if content, ok := sel.Attr("content"); ok && content != "" {
			data["twitter_"+strings.TrimPrefix(name, "twitter:")] = content
		}
	})

	links := absoluteLinks(doc, pageURL)
	if len(links) > 0 {
		data["links"] = strings.Join(links, ",")
	}

	var c float64
	if data["title"] != "" {
		c += 0.3
	}
	if data["description"] != "" {
		c += 0.3
	}
	hasOG := false
	for k := range data {
		if strings.HasPrefix(k, "og_") {
			hasOG = true
			break
		}
	}
	if hasOG {
		c += 0.2
	}
	if len(links) > 0 {
		c += 0.1
	}
	if data["og_image"] != "" {
		c += 0.1
	}
	if c > 1.0 {
		c = 1.0
	}

	return &Result{
		Success:          c > 0,
		Data:             data,
		Method:           string(model.SourceStructuredData),
		Confidence:       c,
		ProcessingTimeMS: sinceMS(start),
	}
}

// absoluteLinks resolves every <a href> on the page against base and
// returns the distinct http(s) outbound links, in document order.
func absoluteLinks(doc *goquery.Document, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u, err := baseURL.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		abs := u.String()
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	})
	return out
}
