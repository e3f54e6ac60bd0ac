package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/leadboost/leadpipe/internal/auth"
	"github.com/leadboost/leadpipe/internal/messenger"
	"github.com/leadboost/leadpipe/internal/quota"
	"github.com/leadboost/leadpipe/internal/scorer"
	"github.com/leadboost/leadpipe/internal/scrape"
	"github.com/leadboost/leadpipe/internal/store"
	"github.com/leadboost/leadpipe/internal/waterfall"
	anthropicpkg "github.com/leadboost/leadpipe/pkg/anthropic"
)

// pipelineEnv holds every initialized dependency shared by the serve and
// worker commands.
type pipelineEnv struct {
	Store     store.Store
	Tokens    *auth.TokenIssuer
	Catalog   *quota.PlanCatalog
	Quota     *quota.Gate
	Scraper   *scrape.Scraper
	Enricher  *waterfall.Executor
	Scorer    *scorer.Scorer
	Messenger *messenger.Messenger
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured backend without running migrations.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	}
}

// initEnv wires every dependency shared by the serve and worker processes.
// Callers must defer env.Close().
func initEnv(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	catalog := quota.NewPlanCatalog(cfg.Plans)
	gate := quota.NewGate(st, catalog)

	var anthropicClient anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		anthropicClient = anthropicpkg.NewResilientClientWithTuning(anthropicpkg.NewClient(cfg.Anthropic.Key), anthropicpkg.ResilienceTuning{
			RetryMaxAttempts:        cfg.Anthropic.RetryMaxAttempts,
			RetryInitialBackoffMS:   cfg.Anthropic.RetryInitialBackoffMS,
			RetryMaxBackoffMS:       cfg.Anthropic.RetryMaxBackoffMS,
			RetryMultiplier:         cfg.Anthropic.RetryMultiplier,
			RetryJitterFraction:     cfg.Anthropic.RetryJitterFraction,
			CircuitFailureThreshold: cfg.Anthropic.CircuitFailureThreshold,
			CircuitResetTimeoutSecs: cfg.Anthropic.CircuitResetTimeoutSecs,
		})
	}

	thresholds, err := waterfall.LoadThresholdConfig(cfg.Waterfall.ThresholdsPath)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init waterfall thresholds")
	}

	heuristic := waterfall.NewHeuristic()
	llm := waterfall.NewLLM(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.EnrichTemperature)
	enricher := waterfall.NewExecutorWithThresholds(heuristic, waterfall.NoopExternalProvider{}, llm, thresholds)

	sc, err := scorer.New(scorer.CriteriaFromConfig(cfg.Scoring))
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init scorer")
	}

	return &pipelineEnv{
		Store:     st,
		Tokens:    auth.NewTokenIssuer(cfg.Auth),
		Catalog:   catalog,
		Quota:     gate,
		Scraper:   scrape.New(cfg.Scrape),
		Enricher:  enricher,
		Scorer:    sc,
		Messenger: messenger.New(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MessageTemperature, cfg.Anthropic.SenderOrg),
	}, nil
}
