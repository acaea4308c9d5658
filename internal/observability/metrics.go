package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// MetricsCollector records provider calls, operations, chat turns, table
// loads and HTTP traffic. A disabled or nil collector ignores every call.
type MetricsCollector struct {
	registry *promclient.Registry
	provider *sdkmetric.MeterProvider

	llmRequests     metric.Int64Counter
	llmTokensInput  metric.Int64Counter
	llmTokensOutput metric.Int64Counter
	llmLatency      metric.Float64Histogram

	opExecutions metric.Int64Counter
	opDuration   metric.Float64Histogram

	chatTurns      metric.Int64Counter
	ingests        metric.Int64Counter
	sessionsActive metric.Int64UpDownCounter

	httpRequests metric.Int64Counter
	httpLatency  metric.Float64Histogram
}

// instruments collects creation errors so registration reads as a list.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.errs = append(in.errs, err)
	return c
}

func (in *instruments) histogram(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	in.errs = append(in.errs, err)
	return h
}

func (in *instruments) gauge(name, desc, unit string) metric.Int64UpDownCounter {
	g, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.errs = append(in.errs, err)
	return g
}

// NewMetricsCollector builds a collector with its own Prometheus registry so
// tests and servers in one process do not collide.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	in := &instruments{meter: provider.Meter("sheetgenie")}

	m := &MetricsCollector{
		registry: registry,
		provider: provider,

		llmRequests:     in.counter("sheetgenie.llm.requests.total", "Model provider requests", "{request}"),
		llmTokensInput:  in.counter("sheetgenie.llm.tokens.input", "Prompt tokens sent to the model", "{token}"),
		llmTokensOutput: in.counter("sheetgenie.llm.tokens.output", "Completion tokens received", "{token}"),
		llmLatency:      in.histogram("sheetgenie.llm.latency", "Model provider latency"),

		opExecutions: in.counter("sheetgenie.operation.executions.total", "Spreadsheet operations executed", "{execution}"),
		opDuration:   in.histogram("sheetgenie.operation.duration", "Spreadsheet operation duration"),

		chatTurns:      in.counter("sheetgenie.chat.turns.total", "Chat turns handled", "{turn}"),
		ingests:        in.counter("sheetgenie.ingest.total", "Tables loaded from files, samples or Google Sheets", "{table}"),
		sessionsActive: in.gauge("sheetgenie.sessions.active", "Chat sessions held in memory", "{session}"),

		httpRequests: in.counter("sheetgenie.http.requests.total", "HTTP requests served", "{request}"),
		httpLatency:  in.histogram("sheetgenie.http.latency", "HTTP request latency"),
	}
	if err := errors.Join(in.errs...); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("register instruments: %w", err)
	}
	return m, nil
}

func (m *MetricsCollector) Enabled() bool {
	return m != nil && m.registry != nil
}

// Handler serves the Prometheus scrape format, or 404 when disabled.
func (m *MetricsCollector) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *MetricsCollector) RecordLLMRequest(ctx context.Context, model, status string, latency time.Duration, inputTokens, outputTokens int) {
	if !m.Enabled() {
		return
	}
	byModel := metric.WithAttributes(attribute.String("model", model))
	withStatus := metric.WithAttributes(attribute.String("model", model), attribute.String("status", status))

	m.llmRequests.Add(ctx, 1, withStatus)
	m.llmTokensInput.Add(ctx, int64(inputTokens), byModel)
	m.llmTokensOutput.Add(ctx, int64(outputTokens), byModel)
	m.llmLatency.Record(ctx, latency.Seconds(), withStatus)
}

// RecordToolExecution counts one dispatched operation such as "aggregate".
func (m *MetricsCollector) RecordToolExecution(ctx context.Context, operation, status string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.opExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordChatTurn labels a turn by kind: "text" or "tool_call".
func (m *MetricsCollector) RecordChatTurn(ctx context.Context, kind, status string) {
	if !m.Enabled() {
		return
	}
	m.chatTurns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// RecordIngest counts a table load by source: xlsx, csv, sample or google_sheets.
func (m *MetricsCollector) RecordIngest(ctx context.Context, source, status string) {
	if !m.Enabled() {
		return
	}
	m.ingests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	))
}

func (m *MetricsCollector) IncrementActiveSessions(ctx context.Context) {
	if m.Enabled() {
		m.sessionsActive.Add(ctx, 1)
	}
}

func (m *MetricsCollector) DecrementActiveSessions(ctx context.Context) {
	if m.Enabled() {
		m.sessionsActive.Add(ctx, -1)
	}
}

// RecordHTTPRequest labels by route template, not raw path.
func (m *MetricsCollector) RecordHTTPRequest(ctx context.Context, method, route string, status int, latency time.Duration) {
	if !m.Enabled() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpLatency.Record(ctx, latency.Seconds(), attrs)
}
