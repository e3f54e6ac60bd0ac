// Package monitor implements the background failure-rate checker and
// webhook alerter, adapted from the teacher codebase's internal/monitoring
// package to LeadPipe's scraping/enrichment stage logs.
package monitor

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/leadboost/leadpipe/internal/store"
)

// Snapshot holds a point-in-time view of pipeline stage health. The
// combined StageFailureRate/SampleSize fold both stages together for the
// alerter's threshold check; the per-stage fields let operators see which
// stage is actually degraded.
type Snapshot struct {
	StageFailureRate      float64   `json:"stage_failure_rate"`
	SampleSize            int       `json:"sample_size"`
	ScrapingFailureRate   float64   `json:"scraping_failure_rate"`
	ScrapingSampleSize    int       `json:"scraping_sample_size"`
	EnrichmentFailureRate float64   `json:"enrichment_failure_rate"`
	EnrichmentSampleSize  int       `json:"enrichment_sample_size"`
	LookbackHours         int       `json:"lookback_hours"`
	CollectedAt           time.Time `json:"collected_at"`
}

// Collector gathers the scraping/enrichment stage failure rate from the
// store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector backed by st.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of stage failure rate over the given lookback
// window. The scraping and enrichment log samples are independent queries,
// so they are fetched concurrently rather than serialized one after the
// other.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	lookback := time.Duration(lookbackHours) * time.Hour

	var scrapeRate, enrichRate float64
	var scrapeSamples, enrichSamples int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scrapeRate, scrapeSamples, err = c.store.RecentScrapingFailureRate(gctx, lookback)
		return err
	})
	g.Go(func() error {
		var err error
		enrichRate, enrichSamples, err = c.store.RecentEnrichmentFailureRate(gctx, lookback)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "monitor: recent stage failure rate")
	}

	totalSamples := scrapeSamples + enrichSamples
	var combinedRate float64
	if totalSamples > 0 {
		combinedRate = (scrapeRate*float64(scrapeSamples) + enrichRate*float64(enrichSamples)) / float64(totalSamples)
	}

	return &Snapshot{
		StageFailureRate:      combinedRate,
		SampleSize:            totalSamples,
		ScrapingFailureRate:   scrapeRate,
		ScrapingSampleSize:    scrapeSamples,
		EnrichmentFailureRate: enrichRate,
		EnrichmentSampleSize:  enrichSamples,
		LookbackHours:         lookbackHours,
		CollectedAt:           time.Now().UTC(),
	}, nil
}
