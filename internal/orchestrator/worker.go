package orchestrator

import (
	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/leadboost/leadpipe/internal/config"
)

// TaskQueue returns the configured Temporal task queue, falling back to the
// package default when unset.
func TaskQueue(cfg config.TemporalConfig) string {
	if cfg.TaskQueue == "" {
		return defaultTaskQueue
	}
	return cfg.TaskQueue
}

// NewClient dials the Temporal server described by cfg.
func NewClient(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: dial temporal")
	}
	return c, nil
}

// RunWorker registers the pipeline workflow and its activities and blocks
// serving tasks until interrupted. Prefetch is bounded by
// MaxConcurrentActivityExecutions (spec.md §5: one in-flight job per
// worker by default).
func RunWorker(c client.Client, cfg config.TemporalConfig, activities *Activities) error {
	w := worker.New(c, TaskQueue(cfg), worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.MaxConcurrentActivityExecutions,
	})

	w.RegisterWorkflow(ProcessLeadWorkflow)
	w.RegisterActivity(activities)

	return eris.Wrap(w.Run(worker.InterruptCh()), "orchestrator: worker run")
}
