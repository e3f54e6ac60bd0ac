package anthropic

import (
	"context"

	"github.com/leadboost/leadpipe/internal/resilience"
)

// resilientClient wraps a Client with a circuit breaker and retry-with-
// backoff, so a run of transient Anthropic API failures (rate limits,
// 5xx, network blips) degrades to ErrCircuitOpen instead of cascading
// into every enrichment/messenger call blocking on a slow upstream.
type resilientClient struct {
	inner   Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewResilientClient wraps client with the default circuit breaker and
// retry policy for a single named service ("anthropic").
func NewResilientClient(client Client) Client {
	return &resilientClient{
		inner:   client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		retry:   resilience.DefaultRetryConfig(),
	}
}

// ResilienceTuning carries the operator-configurable retry/circuit-breaker
// knobs for the Anthropic client, sourced from AnthropicConfig.
type ResilienceTuning struct {
	RetryMaxAttempts        int
	RetryInitialBackoffMS   int
	RetryMaxBackoffMS       int
	RetryMultiplier         float64
	RetryJitterFraction     float64
	CircuitFailureThreshold int
	CircuitResetTimeoutSecs int
}

// NewResilientClientWithTuning wraps client with a circuit breaker and
// retry policy built from operator configuration instead of the compiled-in
// defaults, so a deployment can tighten or relax both without a rebuild.
func NewResilientClientWithTuning(client Client, tuning ResilienceTuning) Client {
	return &resilientClient{
		inner: client,
		breaker: resilience.NewCircuitBreaker(resilience.FromCircuitConfig(
			tuning.CircuitFailureThreshold, tuning.CircuitResetTimeoutSecs)),
		retry: resilience.FromRetryConfig(
			tuning.RetryMaxAttempts, tuning.RetryInitialBackoffMS, tuning.RetryMaxBackoffMS,
			tuning.RetryMultiplier, tuning.RetryJitterFraction),
	}
}

func (c *resilientClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*MessageResponse, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*MessageResponse, error) {
			return c.inner.CreateMessage(ctx, req)
		})
	})
}
