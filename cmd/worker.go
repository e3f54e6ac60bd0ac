package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/orchestrator"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker that processes enqueued leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		temporalClient, err := orchestrator.NewClient(cfg.Temporal)
		if err != nil {
			return err
		}
		defer temporalClient.Close()

		activities := &orchestrator.Activities{
			Store:     env.Store,
			Scraper:   env.Scraper,
			Enricher:  env.Enricher,
			Scorer:    env.Scorer,
			Messenger: env.Messenger,
			Quota:     env.Quota,
		}

		zap.L().Info("orchestrator: worker starting",
			zap.String("task_queue", orchestrator.TaskQueue(cfg.Temporal)))

		return orchestrator.RunWorker(temporalClient, cfg.Temporal, activities)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
