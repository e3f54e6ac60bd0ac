package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/config"
)

// minSampleSize is the smallest number of stage log rows before a failure
// rate is considered meaningful enough to alert on.
const minSampleSize = 5

// AlertType identifies the kind of alert.
type AlertType string

const AlertStageFailureRate AlertType = "stage_failure_rate"

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against the configured failure-rate
// threshold and sends alerts via webhook when it's breached.
type Alerter struct {
	cfg    config.MonitorConfig
	client *http.Client
}

// NewAlerter creates an Alerter from cfg.
func NewAlerter(cfg config.MonitorConfig) *Alerter {
	return &Alerter{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Evaluate checks the snapshot against the threshold and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	if snap.SampleSize < minSampleSize || snap.StageFailureRate <= a.cfg.FailureRateThreshold {
		return nil
	}

	return []Alert{{
		Type:     AlertStageFailureRate,
		Severity: "high",
		Message: fmt.Sprintf(
			"Stage failure rate %.1f%% exceeds threshold %.1f%% (%d samples in last %dh)",
			snap.StageFailureRate*100, a.cfg.FailureRateThreshold*100, snap.SampleSize, snap.LookbackHours,
		),
		Details: map[string]any{
			"failure_rate": snap.StageFailureRate,
			"threshold":    a.cfg.FailureRateThreshold,
			"sample_size":  snap.SampleSize,
		},
		Timestamp: time.Now().UTC(),
	}}
}

// SendAlerts delivers alerts to the configured webhook URL, returning the
// number successfully sent. A no-op when no webhook is configured.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitor: failed to send alert", zap.String("type", string(alert.Type)), zap.Error(err))
			continue
		}
		zap.L().Info("monitor: alert sent", zap.String("type", string(alert.Type)), zap.String("severity", alert.Severity))
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitor: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitor: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitor: webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return eris.Newf("monitor: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
