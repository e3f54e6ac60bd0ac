package orchestrator

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/resilience"
)

// activityTimeout bounds a single activity attempt. The job-level wall
// clock bound from spec.md §5 (120s) is enforced by the sum of per-stage
// timeouts plus the workflow's own execution timeout, set by the caller
// that starts the workflow.
const activityTimeout = 30 * time.Second

// dlqActivityTimeout bounds the DLQ-enqueue write itself, kept short since
// it is a single insert and must not compete with the job's own timeout
// budget.
const dlqActivityTimeout = 10 * time.Second

// retryPolicy implements the fixed 60s-backoff, 3-attempt retry policy
// from spec.md §4.6. BackoffCoefficient of 1 keeps the interval fixed
// rather than exponential.
var retryPolicy = &temporal.RetryPolicy{
	InitialInterval:    60 * time.Second,
	BackoffCoefficient: 1.0,
	MaximumInterval:    60 * time.Second,
	MaximumAttempts:    3,
}

// dlqRetryPolicy governs only the DLQ-enqueue activity: a few quick
// attempts so a transient store error doesn't also drop the failure
// record that was meant to preserve the lead for replay.
var dlqRetryPolicy = &temporal.RetryPolicy{
	InitialInterval:    time.Second,
	BackoffCoefficient: 2.0,
	MaximumInterval:    10 * time.Second,
	MaximumAttempts:    3,
}

// ProcessLeadWorkflow executes the pipeline sequence from spec.md §4.6:
// load, scrape, (conditionally) enrich, score, (conditionally) message,
// commit. Each stage is a separate activity so a worker crash mid-job
// resumes from its last completed stage rather than restarting the whole
// pipeline, and each activity's own ScrapingLog/EnrichmentLog row makes
// partial progress observable before the next stage runs.
//
// When Scrape, Score or CommitLead exhausts retryPolicy, the lead is
// enqueued onto the dead letter queue before the workflow fails, so it can
// be replayed once the underlying cause (a down target site, a store
// outage) clears, instead of the job's work simply vanishing. A LoadLead
// or CanUseAI failure fails the workflow without a DLQ entry; Enrich and
// Message failures do not fail the workflow at all.
func ProcessLeadWorkflow(ctx workflow.Context, input ProcessLeadInput) (ProcessLeadResult, error) {
	dlqCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: dlqActivityTimeout,
		RetryPolicy:         dlqRetryPolicy,
	})
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
		RetryPolicy:         retryPolicy,
	})

	var a *Activities

	var lead model.Lead
	if err := workflow.ExecuteActivity(ctx, a.LoadLead, input.LeadID).Get(ctx, &lead); err != nil {
		return ProcessLeadResult{Status: "failed", LeadID: input.LeadID}, err
	}

	var scrapeOut ScrapeOutcome
	if err := workflow.ExecuteActivity(ctx, a.Scrape, lead).Get(ctx, &scrapeOut); err != nil {
		enqueueFailedLead(dlqCtx, a, lead.ID, "Scrape", err)
		return ProcessLeadResult{Status: "failed", LeadID: lead.ID}, err
	}
	lead = scrapeOut.Lead

	var canUseAI bool
	if err := workflow.ExecuteActivity(ctx, a.CanUseAI, lead.OrganizationID).Get(ctx, &canUseAI); err != nil {
		return ProcessLeadResult{Status: "failed", LeadID: lead.ID}, err
	}

	var enrichmentSuccess bool
	if canUseAI {
		var enrichOut EnrichOutcome
		err := workflow.ExecuteActivity(ctx, a.Enrich,
			EnrichInput{Lead: lead, Data: scrapeOut.Data}).Get(ctx, &enrichOut)
		if err == nil {
			lead = enrichOut.Lead
			enrichmentSuccess = enrichOut.Success
		}
	}

	if err := workflow.ExecuteActivity(ctx, a.Score, lead).Get(ctx, &lead); err != nil {
		enqueueFailedLead(dlqCtx, a, lead.ID, "Score", err)
		return ProcessLeadResult{Status: "failed", LeadID: lead.ID}, err
	}

	if canUseAI {
		err := workflow.ExecuteActivity(ctx, a.Message,
			MessageInput{Lead: lead, Style: input.MessageStyle}).Get(ctx, &lead)
		if err != nil {
			lead.OutreachMessage = sentinelMessage
		}
	} else {
		lead.OutreachMessage = sentinelMessage
	}

	if err := workflow.ExecuteActivity(ctx, a.CommitLead, lead).Get(ctx, nil); err != nil {
		enqueueFailedLead(dlqCtx, a, lead.ID, "CommitLead", err)
		return ProcessLeadResult{Status: "failed", LeadID: lead.ID}, err
	}

	return ProcessLeadResult{
		Status:            "completed",
		LeadID:            lead.ID,
		ScrapingSuccess:   scrapeOut.Success,
		EnrichmentSuccess: enrichmentSuccess,
	}, nil
}

// enqueueFailedLead classifies stageErr and fires the DLQ-enqueue activity
// on dlqCtx. It deliberately ignores the activity's own error: a failure to
// record the DLQ entry must not mask or replace the original stage error
// that is about to fail the workflow.
func enqueueFailedLead(dlqCtx workflow.Context, a *Activities, leadID int64, failedPhase string, stageErr error) {
	errorType := resilience.ClassifyError(stageErr)
	_ = workflow.ExecuteActivity(dlqCtx, a.EnqueueFailedLead, leadID, failedPhase, errorType, stageErr.Error()).Get(dlqCtx, nil)
}
