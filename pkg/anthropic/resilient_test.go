package anthropic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/resilience"
)

var errUpstreamUnavailable = errors.New("upstream unavailable")

type flakyClient struct {
	failuresLeft int
	calls        int
}

func (c *flakyClient) CreateMessage(_ context.Context, _ MessageRequest) (*MessageResponse, error) {
	c.calls++
	if c.failuresLeft > 0 {
		c.failuresLeft--
		return nil, resilience.NewTransientError(errUpstreamUnavailable, 503)
	}
	return &MessageResponse{ID: "msg_1"}, nil
}

func TestResilientClientRetriesTransientFailures(t *testing.T) {
	inner := &flakyClient{failuresLeft: 2}
	client := NewResilientClient(inner)

	resp, err := client.CreateMessage(t.Context(), MessageRequest{})
	require.NoError(t, err)
	require.Equal(t, "msg_1", resp.ID)
	require.Equal(t, 3, inner.calls)
}

type alwaysFailClient struct {
	calls int
}

func (c *alwaysFailClient) CreateMessage(_ context.Context, _ MessageRequest) (*MessageResponse, error) {
	c.calls++
	return nil, resilience.NewTransientError(errUpstreamUnavailable, 503)
}

func TestResilientClientBreakerStaysClosedAfterTwoFailedCalls(t *testing.T) {
	inner := &alwaysFailClient{}
	client := NewResilientClient(inner)

	// The breaker wraps the retry loop, so each outer call counts as one
	// breaker failure however many inner attempts it made.
	// DefaultCircuitBreakerConfig trips after 5 consecutive failures, so
	// after two failed outer calls the breaker is still closed and the
	// second call still reaches the upstream.
	_, err := client.CreateMessage(t.Context(), MessageRequest{})
	require.Error(t, err)
	callsAfterFirst := inner.calls

	_, err = client.CreateMessage(t.Context(), MessageRequest{})
	require.Error(t, err)
	require.Greater(t, inner.calls, callsAfterFirst)
}

func TestResilientClientWithTuningHonorsConfiguredLimits(t *testing.T) {
	inner := &alwaysFailClient{}
	client := NewResilientClientWithTuning(inner, ResilienceTuning{
		RetryMaxAttempts:        1,
		RetryInitialBackoffMS:   1,
		RetryMaxBackoffMS:       1,
		RetryMultiplier:         2,
		RetryJitterFraction:     0,
		CircuitFailureThreshold: 1,
		CircuitResetTimeoutSecs: 30,
	})

	_, err := client.CreateMessage(t.Context(), MessageRequest{})
	require.Error(t, err)
	require.Equal(t, 1, inner.calls)

	_, err = client.CreateMessage(t.Context(), MessageRequest{})
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	require.Equal(t, 1, inner.calls)
}
