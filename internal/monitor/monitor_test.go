package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/config"
	"github.com/leadboost/leadpipe/internal/store"
)

func TestEvaluateNoAlertBelowSampleSize(t *testing.T) {
	a := NewAlerter(config.MonitorConfig{FailureRateThreshold: 0.1})
	snap := &Snapshot{StageFailureRate: 0.9, SampleSize: 1, LookbackHours: 24}
	require.Empty(t, a.Evaluate(snap))
}

func TestEvaluateNoAlertBelowThreshold(t *testing.T) {
	a := NewAlerter(config.MonitorConfig{FailureRateThreshold: 0.5})
	snap := &Snapshot{StageFailureRate: 0.2, SampleSize: 10, LookbackHours: 24}
	require.Empty(t, a.Evaluate(snap))
}

func TestEvaluateAlertsAboveThreshold(t *testing.T) {
	a := NewAlerter(config.MonitorConfig{FailureRateThreshold: 0.3})
	snap := &Snapshot{StageFailureRate: 0.75, SampleSize: 20, LookbackHours: 24}
	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	require.Equal(t, AlertStageFailureRate, alerts[0].Type)
	require.Equal(t, "high", alerts[0].Severity)
}

func TestSendAlertsPostsWebhook(t *testing.T) {
	var received Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitorConfig{FailureRateThreshold: 0.1, WebhookURL: srv.URL})
	sent := a.SendAlerts(t.Context(), []Alert{{Type: AlertStageFailureRate, Severity: "high", Message: "boom"}})
	require.Equal(t, 1, sent)
	require.Equal(t, "boom", received.Message)
}

func TestSendAlertsNoopWithoutWebhook(t *testing.T) {
	a := NewAlerter(config.MonitorConfig{})
	sent := a.SendAlerts(t.Context(), []Alert{{Type: AlertStageFailureRate}})
	require.Equal(t, 0, sent)
}

func TestCollectorCollectsEmptyStore(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(t.Context()))

	c := NewCollector(st)
	snap, err := c.Collect(t.Context(), 24)
	require.NoError(t, err)
	require.Equal(t, 0, snap.SampleSize)
	require.Equal(t, 24, snap.LookbackHours)
}
