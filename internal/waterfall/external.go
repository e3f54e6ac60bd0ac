package waterfall

import (
	"context"
	"errors"
	"time"

	"github.com/leadboost/leadpipe/internal/model"
)

// ErrNoData is returned by an ExternalProvider that has nothing to
// contribute for the given input.
var ErrNoData = errors.New("waterfall: external provider has no data")

// ExternalProvider is the pluggable seam for the waterfall's second
// strategy. The Python original's equivalent (_external_api_enrichment)
// was an unconditional no-op; LeadPipe keeps that behavior shipped by
// default (NoopExternalProvider) but gives any future concrete provider
// (a Clearbit-style company enrichment API, for example) a real interface
// to implement without touching the executor's control flow.
type ExternalProvider interface {
	Enrich(ctx context.Context, in Input) (Fields, float64, error)
}

// NoopExternalProvider always reports ErrNoData, causing the waterfall to
// fall through to the LLM strategy exactly as the original does.
type NoopExternalProvider struct{}

// Enrich implements ExternalProvider.
func (NoopExternalProvider) Enrich(context.Context, Input) (Fields, float64, error) {
	return Fields{}, 0, ErrNoData
}

func runExternal(ctx context.Context, provider ExternalProvider, in Input) *Result {
	start := time.Now()
	fields, confidence, err := provider.Enrich(ctx, in)
	if err != nil {
		return &Result{Method: model.SourceExternalAPI, Error: err.Error(), ProcessingTimeMS: time.Since(start).Milliseconds()}
	}
	return &Result{
		Success:          true,
		Fields:           fields,
		Method:           model.SourceExternalAPI,
		Confidence:       confidence,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
}
