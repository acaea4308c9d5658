package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/logging"
	"sheetgenie/internal/observability"

	"go.opentelemetry.io/otel/codes"
)

// RetryOptions wires a retry client into the ambient stack. Every field is
// optional.
type RetryOptions struct {
	Retry          sgerrors.RetryConfig
	CircuitBreaker *sgerrors.CircuitBreaker
	Metrics        *observability.MetricsCollector
	Tracer         *observability.TracerProvider
	Logger         logging.Logger
}

// retryClient wraps an LLM client with retry logic and circuit breaker
type retryClient struct {
	underlying     Client
	retryConfig    sgerrors.RetryConfig
	circuitBreaker *sgerrors.CircuitBreaker
	metrics        *observability.MetricsCollector
	tracer         *observability.TracerProvider
	logger         logging.Logger
}

// NewRetryClient wraps client so transient provider failures are retried with
// backoff behind a circuit breaker. Whatever still fails is returned as an
// UpstreamProviderError.
func NewRetryClient(client Client, opts RetryOptions) Client {
	breaker := opts.CircuitBreaker
	if breaker == nil {
		breaker = sgerrors.NewCircuitBreaker(fmt.Sprintf("llm-%s", client.Model()), sgerrors.DefaultCircuitBreakerConfig())
	}
	logger := opts.Logger
	if logging.IsNil(logger) {
		logger = logging.NewComponentLogger("llm-retry")
	}
	return &retryClient{
		underlying:     client,
		retryConfig:    opts.Retry,
		circuitBreaker: breaker,
		metrics:        opts.Metrics,
		tracer:         opts.Tracer,
		logger:         logger,
	}
}

// Complete executes LLM completion with retry logic
func (c *retryClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	ctx, span := c.tracer.StartSpan(ctx, observability.SpanLLMGenerate)
	defer span.End()

	startTime := time.Now()
	reply, err := sgerrors.Do(ctx, c.retryConfig, logging.FromContext(ctx, c.logger), func(ctx context.Context) (*Reply, error) {
		return sgerrors.ExecuteFunc(c.circuitBreaker, ctx, func(ctx context.Context) (*Reply, error) {
			return c.underlying.Complete(ctx, req)
		})
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("LLM request failed after retries (took %v): %v", duration, err)
		c.metrics.RecordLLMRequest(ctx, c.Model(), "error", duration, 0, 0)
		span.SetAttributes(observability.ErrorAttrs(err)...)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, sgerrors.Wrap(sgerrors.CodeUpstreamProvider, err, "%s", sgerrors.FormatForUser(err))
	}

	c.metrics.RecordLLMRequest(ctx, c.Model(), "success", duration, reply.Usage.PromptTokens, reply.Usage.CompletionTokens)
	span.SetAttributes(observability.LLMAttrs(c.Model(), reply.Usage.PromptTokens, reply.Usage.CompletionTokens)...)
	if duration > 5*time.Second {
		c.logger.Debug("LLM request succeeded after %v", duration)
	}
	if reply.Latency == 0 {
		reply.Latency = duration
	}
	return reply, nil
}

// Model returns the underlying model name
func (c *retryClient) Model() string {
	return c.underlying.Model()
}
