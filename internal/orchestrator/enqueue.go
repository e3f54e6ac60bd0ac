package orchestrator

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"

	"github.com/leadboost/leadpipe/internal/config"
)

// Enqueuer starts pipeline workflow executions from the request domain.
// Handlers enqueue and return immediately; they never wait on pipeline
// work (spec.md §5).
type Enqueuer struct {
	client client.Client
	cfg    config.TemporalConfig
}

// NewEnqueuer creates an Enqueuer backed by c.
func NewEnqueuer(c client.Client, cfg config.TemporalConfig) *Enqueuer {
	return &Enqueuer{client: c, cfg: cfg}
}

// Enqueue starts a ProcessLeadWorkflow execution for leadID. The workflow
// ID is deterministic per lead so re-triggering processing for the same
// lead while a run is still in flight reuses it rather than racing two
// workflow executions over the same row.
func (e *Enqueuer) Enqueue(ctx context.Context, leadID int64, messageStyle string) error {
	_, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("process-lead-%d", leadID),
		TaskQueue:                TaskQueue(e.cfg),
		WorkflowExecutionTimeout: jobWallClockTimeout,
	}, ProcessLeadWorkflow, ProcessLeadInput{LeadID: leadID, MessageStyle: messageStyle})
	if err != nil {
		return eris.Wrapf(err, "orchestrator: enqueue lead %d", leadID)
	}
	return nil
}
