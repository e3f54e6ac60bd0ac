package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/orchestrator"
	"github.com/leadboost/leadpipe/internal/resilience"
)

var (
	retryErrorType string
	retryLimit     int
)

var retryFailedCmd = &cobra.Command{
	Use:   "retry-failed",
	Short: "Resubmit dead-lettered leads whose retry delay has elapsed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

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

		enqueuer := orchestrator.NewEnqueuer(temporalClient, cfg.Temporal)

		entries, err := env.Store.DequeueDLQ(ctx, resilience.DLQFilter{ErrorType: retryErrorType, Limit: retryLimit})
		if err != nil {
			return err
		}

		var retried, failed int
		for _, entry := range entries {
			if err := enqueuer.Enqueue(ctx, entry.LeadID, "professional"); err != nil {
				zap.L().Warn("retry-failed: re-enqueue failed",
					zap.Int64("lead_id", entry.LeadID), zap.Error(err))
				next := entry.NextRetryAt.Add(dlqRetryBackoff(entry.RetryCount + 1))
				if uerr := env.Store.IncrementDLQRetry(ctx, entry.ID, next); uerr != nil {
					zap.L().Warn("retry-failed: increment retry count failed",
						zap.Int64("dlq_id", entry.ID), zap.Error(uerr))
				}
				failed++
				continue
			}
			if err := env.Store.RemoveDLQ(ctx, entry.ID); err != nil {
				zap.L().Warn("retry-failed: remove dlq entry failed",
					zap.Int64("dlq_id", entry.ID), zap.Error(err))
			}
			retried++
		}

		fmt.Printf("retried %d lead(s), %d still failing\n", retried, failed)
		return nil
	},
}

func init() {
	retryFailedCmd.Flags().StringVar(&retryErrorType, "error-type", "transient", `DLQ error type to retry ("transient", "permanent", or "" for all)`)
	retryFailedCmd.Flags().IntVar(&retryLimit, "limit", 50, "maximum number of entries to retry per run")
	rootCmd.AddCommand(retryFailedCmd)
}

// dlqRetryBackoff grows geometrically with retryCount, capped at 2 hours,
// mirroring the orchestrator's own backoff for the first DLQ write.
func dlqRetryBackoff(retryCount int) time.Duration {
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
