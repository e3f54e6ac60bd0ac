package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/config"
	"github.com/leadboost/leadpipe/internal/store"
)

// Checker runs periodic stage-failure-rate checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitorConfig
}

// NewChecker creates a background checker backed by st.
func NewChecker(st store.Store, cfg config.MonitorConfig) *Checker {
	return &Checker{
		collector: NewCollector(st),
		alerter:   NewAlerter(cfg),
		cfg:       cfg,
	}
}

// Run starts the periodic check loop. It blocks until ctx is canceled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitor.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	lookback := c.cfg.LookbackWindowHours
	if lookback <= 0 {
		lookback = 24
	}

	snap, err := c.collector.Collect(ctx, lookback)
	if err != nil {
		log.Error("monitor: failed to collect metrics", zap.Error(err))
		return
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitor: no alerts triggered", zap.Int("sample_size", snap.SampleSize))
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitor: alert check complete", zap.Int("alerts_triggered", len(alerts)), zap.Int("alerts_sent", sent))
}
