package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/temporal"

	"github.com/leadboost/leadpipe/internal/messenger"
	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/quota"
	"github.com/leadboost/leadpipe/internal/resilience"
	"github.com/leadboost/leadpipe/internal/scorer"
	"github.com/leadboost/leadpipe/internal/scrape"
	"github.com/leadboost/leadpipe/internal/store"
	"github.com/leadboost/leadpipe/internal/waterfall"
)

// Activities bundles every side-effecting dependency the pipeline's stages
// need. One instance is shared by the worker process across all jobs; each
// method must be safe for concurrent use (the pipeline's dependencies
// already are: Store is pool-backed, Scraper's http.Client is pooled, and
// waterfall/scorer/messenger hold no per-call mutable state).
type Activities struct {
	Store     store.Store
	Scraper   *scrape.Scraper
	Enricher  *waterfall.Executor
	Scorer    *scorer.Scorer
	Messenger *messenger.Messenger
	Quota     *quota.Gate
}

// LoadLead loads the lead by id. A missing lead is a permanent failure:
// the workflow must not retry a job for a lead that no longer exists.
func (a *Activities) LoadLead(ctx context.Context, leadID int64) (model.Lead, error) {
	lead, err := a.Store.GetLead(ctx, leadID)
	if err == store.ErrNotFound {
		return model.Lead{}, temporal.NewNonRetryableApplicationError(
			"lead not found", "LeadNotFound", err)
	}
	if err != nil {
		return model.Lead{}, eris.Wrap(err, "orchestrator: load lead")
	}
	return *lead, nil
}

// CanUseAI reports whether orgID's plan permits the enrichment and
// messenger AI paths.
func (a *Activities) CanUseAI(ctx context.Context, orgID int64) (bool, error) {
	ok, err := a.Quota.CanUseAI(ctx, orgID)
	if err != nil {
		return false, eris.Wrap(err, "orchestrator: check ai quota")
	}
	return ok, nil
}

// Scrape runs the tiered scraper against the lead's website, appends a
// ScrapingLog row, and merges any extracted fields onto the lead. A scrape
// where every tier fails is a soft failure: it is logged but the workflow
// continues with the lead unchanged.
func (a *Activities) Scrape(ctx context.Context, lead model.Lead) (ScrapeOutcome, error) {
	result := a.Scraper.Scrape(ctx, lead.Website)

	if err := a.appendScrapingLog(ctx, lead.ID, result); err != nil {
		return ScrapeOutcome{}, eris.Wrap(err, "orchestrator: append scraping log")
	}

	if result.Success {
		mergeScrapedFields(&lead, result.Data, result.Confidence, model.Source(result.Method))
	}

	return ScrapeOutcome{Lead: lead, Success: result.Success, Data: result.Data}, nil
}

func (a *Activities) appendScrapingLog(ctx context.Context, leadID int64, result *scrape.Result) error {
	raw, err := json.Marshal(result.Data)
	if err != nil {
		raw = []byte("{}")
	}
	return a.Store.AppendScrapingLog(ctx, &model.ScrapingLog{
		LeadID:           leadID,
		Method:           result.Method,
		Success:          result.Success,
		Confidence:       result.Confidence,
		ProcessingTimeMS: result.ProcessingTimeMS,
		RawData:          string(raw),
		ErrorMessage:     result.Error,
		CreatedAt:        time.Now().UTC(),
	})
}

// Enrich runs the enrichment waterfall, appends an EnrichmentLog row, and
// merges accepted fields onto the lead. Callers only invoke this when the
// organization's plan permits AI usage.
func (a *Activities) Enrich(ctx context.Context, in EnrichInput) (EnrichOutcome, error) {
	lead := in.Lead
	waterfallIn := waterfall.Input{
		CompanyName: lead.CompanyName,
		AboutText:   lead.AboutText,
		Scraped:     in.Data,
	}
	result := a.Enricher.Run(ctx, waterfallIn)

	if err := a.appendEnrichmentLog(ctx, lead.ID, result); err != nil {
		return EnrichOutcome{}, eris.Wrap(err, "orchestrator: append enrichment log")
	}

	if result == nil {
		return EnrichOutcome{Lead: lead, Success: false}, nil
	}
	result.MergeInto(&lead)
	return EnrichOutcome{Lead: lead, Success: true}, nil
}

func (a *Activities) appendEnrichmentLog(ctx context.Context, leadID int64, result *waterfall.Result) error {
	log := &model.EnrichmentLog{LeadID: leadID, CreatedAt: time.Now().UTC()}
	if result == nil {
		log.Method = string(model.SourceNone)
		log.Success = false
	} else {
		fieldsJSON, err := json.Marshal(result.Fields)
		if err != nil {
			fieldsJSON = []byte("{}")
		}
		log.Method = string(result.Method)
		log.Success = result.Success
		log.Confidence = result.Confidence
		log.ProcessingTimeMS = result.ProcessingTimeMS
		log.RawData = string(fieldsJSON)
		log.ErrorMessage = result.Error
	}
	return a.Store.AppendEnrichmentLog(ctx, log)
}

// Score runs the scorer over the lead and returns the lead with
// score/qualification_label written.
func (a *Activities) Score(ctx context.Context, lead model.Lead) (model.Lead, error) {
	if err := a.Scorer.ApplyTo(&lead); err != nil {
		return model.Lead{}, eris.Wrap(err, "orchestrator: score lead")
	}
	return lead, nil
}

// Message generates the outreach message and returns the lead with
// outreach_message written. Callers only invoke this when the
// organization's plan permits AI usage; otherwise the workflow writes the
// sentinel message itself without calling this activity.
func (a *Activities) Message(ctx context.Context, in MessageInput) (model.Lead, error) {
	lead := in.Lead
	result := a.Messenger.Generate(ctx, lead, messenger.Style(in.Style))
	lead.OutreachMessage = result.Message
	return lead, nil
}

// CommitLead persists the final lead state, per spec.md §4.6 step 6.
func (a *Activities) CommitLead(ctx context.Context, lead model.Lead) error {
	if err := a.Store.UpdateLead(ctx, &lead); err != nil {
		return eris.Wrap(err, "orchestrator: commit lead")
	}
	return nil
}

// EnqueueFailedLead records a lead whose stage exhausted the workflow's
// retry policy so it can be replayed or reviewed later instead of being
// silently dropped. failedPhase names the activity that gave up
// (Scrape, Score, CommitLead); errorType is "transient" or "permanent", as
// classified by the workflow from the error the activity future returned
// (Temporal's wrapped activity error).
func (a *Activities) EnqueueFailedLead(ctx context.Context, leadID int64, failedPhase, errorType, causeErr string) error {
	entry := &resilience.DLQEntry{
		LeadID:      leadID,
		FailedPhase: failedPhase,
		Error:       causeErr,
		ErrorType:   errorType,
		MaxRetries:  5,
		NextRetryAt: time.Now().UTC().Add(dlqBackoff(0)),
	}
	if err := a.Store.EnqueueDLQ(ctx, entry); err != nil {
		return eris.Wrap(err, "orchestrator: enqueue failed lead")
	}
	return nil
}

// dlqBackoff grows geometrically with retryCount, capped at 2 hours, so a
// lead whose target site is down briefly is retried soon but one that
// keeps failing backs off hard instead of hammering the same host.
func dlqBackoff(retryCount int) time.Duration {
	const maxBackoff = 2 * time.Hour
	d := time.Minute
	for i := 0; i < retryCount; i++ {
		d *= 5
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
