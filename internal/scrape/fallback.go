package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/leadboost/leadpipe/internal/model"
)

// tryPlainFallback fetches pageURL through the same rate-limited,
// circuit-broken, retried fetch path the JSON-LD/meta tiers use, and runs
// the same DOM extraction as the headless tier, scaled by 0.8 per the
// confidence formula, for use when a headless browser cannot be launched
// in the current environment.
func (s *Scraper) tryPlainFallback(ctx context.Context, pageURL string) *Result {
	start := time.Now()

	body, status, err := s.fetch(ctx, pageURL)
	if err != nil {
		return &Result{Method: string(model.SourceRequests), Error: err.Error(), ProcessingTimeMS: sinceMS(start)}
	}
	if status != http.StatusOK {
		return &Result{
			Method:           string(model.SourceRequests),
			Error:            fmt.Sprintf("unexpected status %d", status),
			ProcessingTimeMS: sinceMS(start),
		}
	}

	ex := extractFromHTML(body, pageURL)
	confidence := pageConfidence(ex) * 0.8

	return &Result{
		Success:          confidence > 0,
		Data:             toResultData(ex),
		Method:           string(model.SourceRequests),
		Confidence:       confidence,
		ProcessingTimeMS: sinceMS(start),
	}
}
