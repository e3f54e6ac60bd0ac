// Package orchestrator sequences the pipeline (scrape, enrich, score,
// message, persist) as a Temporal workflow, giving each stage durable
// per-stage persistence and the fixed-backoff retry policy from spec.md
// §4.6 for free.
package orchestrator

import (
	"time"

	"github.com/leadboost/leadpipe/internal/model"
)

// jobWallClockTimeout bounds the total time a single lead's workflow
// execution may run, per spec.md §5 (suggested 120s). It is applied as the
// WorkflowExecutionTimeout; the workflow is started without a
// workflow-level retry policy, so an execution that exceeds it ends as
// timed out and is not retried.
const jobWallClockTimeout = 120 * time.Second

// ProcessLeadInput is the workflow's job contract: a lead id plus the
// message style requested at enqueue time.
type ProcessLeadInput struct {
	LeadID       int64
	MessageStyle string
}

// ProcessLeadResult is returned to whoever started the workflow.
type ProcessLeadResult struct {
	Status            string
	LeadID            int64
	ScrapingSuccess   bool
	EnrichmentSuccess bool
}

// ScrapeOutcome is the Scrape activity's result: the lead with scraped
// fields merged in, whether the scrape itself succeeded, and the raw
// scraped data map the Enrich activity reads for additional context.
type ScrapeOutcome struct {
	Lead    model.Lead
	Success bool
	Data    map[string]string
}

// EnrichInput bundles the lead with the scraped data map the enrichment
// waterfall's heuristic strategy reads for additional context.
type EnrichInput struct {
	Lead model.Lead
	Data map[string]string
}

// EnrichOutcome is the Enrich activity's result.
type EnrichOutcome struct {
	Lead    model.Lead
	Success bool
}

// MessageInput bundles the lead and the requested outreach style for the
// Message activity.
type MessageInput struct {
	Lead  model.Lead
	Style string
}

// sentinelMessage is written when the organization's plan doesn't permit
// AI-backed generation, per spec.md §4.6 step 5.
const sentinelMessage = "Outreach message generation requires an AI-enabled plan."

const defaultTaskQueue = "leadpipe-pipeline"
