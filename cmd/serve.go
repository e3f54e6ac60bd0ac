package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/httpapi"
	"github.com/leadboost/leadpipe/internal/monitor"
	"github.com/leadboost/leadpipe/internal/orchestrator"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
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

		enqueuer := orchestrator.NewEnqueuer(temporalClient, cfg.Temporal)

		server := httpapi.New(cfg, env.Store, env.Tokens, env.Quota, enqueuer)

		checker := monitor.NewChecker(env.Store, cfg.Monitor)
		go checker.Run(ctx)

		port := resolvePort(servePort, cfg.Server.Port)
		return startServer(ctx, server.Router(), cfg.Server.Host, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}

// startServer runs an HTTP server on host:port until ctx is canceled, then
// drains in-flight requests within a bounded grace period.
func startServer(ctx context.Context, handler http.Handler, host string, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("httpapi: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("httpapi: listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "httpapi: listen")
	}
	return nil
}
