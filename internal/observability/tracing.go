package observability

import (
	"context"
	"fmt"
	"strings"

	id "sheetgenie/internal/utils/id"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Exporter       string  `mapstructure:"exporter" yaml:"exporter"` // otlp or zipkin
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	ZipkinEndpoint string  `mapstructure:"zipkin_endpoint" yaml:"zipkin_endpoint"`
	SampleRate     float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	ServiceName    string  `mapstructure:"service_name" yaml:"service_name"`
	ServiceVersion string  `mapstructure:"service_version" yaml:"service_version"`
}

type exporterFactory func(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error)

var exporters = map[string]exporterFactory{
	"otlp": func(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	},
	"zipkin": func(_ context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
		return zipkin.New(cfg.ZipkinEndpoint)
	},
}

// TracerProvider starts spans for chat turns, dispatches and provider calls.
// A disabled provider hands out no-op spans.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

func NewTracerProvider(config TracingConfig) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{tracer: noop.NewTracerProvider().Tracer(defaultServiceName)}, nil
	}
	config = config.withDefaults()

	factory, ok := exporters[strings.ToLower(config.Exporter)]
	if !ok {
		return nil, fmt.Errorf("unsupported exporter: %s", config.Exporter)
	}
	ctx := context.Background()
	exporter, err := factory(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", config.Exporter, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	))
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	)
	otel.SetTracerProvider(provider)
	return &TracerProvider{provider: provider, tracer: provider.Tracer(defaultServiceName)}, nil
}

// Shutdown flushes pending spans. Safe on nil and disabled providers.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// StartSpan starts a span tagged with the session and log id carried by ctx.
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	f := id.FromContext(ctx)
	if f.SessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, f.SessionID))
	}
	if f.LogID != "" {
		attrs = append(attrs, attribute.String(AttrLogID, f.LogID))
	}

	var tracer trace.Tracer = noop.NewTracerProvider().Tracer(defaultServiceName)
	if tp != nil && tp.tracer != nil {
		tracer = tp.tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

const (
	SpanChatTurn      = "sheetgenie.chat.turn"
	SpanDispatch      = "sheetgenie.dispatch"
	SpanOperation     = "sheetgenie.operation.execute"
	SpanLLMGenerate   = "sheetgenie.llm.generate"
	SpanHTTPServer    = "sheetgenie.http.request"
	SpanGoogleSheetIO = "sheetgenie.gsheets.fetch"
)

const (
	AttrSessionID    = "sheetgenie.session_id"
	AttrLogID        = "sheetgenie.log_id"
	AttrOperation    = "sheetgenie.operation"
	AttrModel        = "sheetgenie.llm.model"
	AttrInputTokens  = "sheetgenie.llm.input_tokens"
	AttrOutputTokens = "sheetgenie.llm.output_tokens"
	AttrRows         = "sheetgenie.table.rows"
	AttrColumns      = "sheetgenie.table.columns"
	AttrStatus       = "sheetgenie.status"
	AttrError        = "sheetgenie.error"
)

func OperationAttrs(operation string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(AttrOperation, operation)}
}

func LLMAttrs(model string, inputTokens, outputTokens int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrModel, model),
		attribute.Int(AttrInputTokens, inputTokens),
		attribute.Int(AttrOutputTokens, outputTokens),
	}
}

// TableAttrs records the shape of the table a span worked on.
func TableAttrs(rows, columns int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrRows, rows),
		attribute.Int(AttrColumns, columns),
	}
}

func StatusAttrs(status string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(AttrStatus, status)}
}

// ErrorAttrs is empty for a nil error.
func ErrorAttrs(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(AttrError, true),
		attribute.String("error.message", err.Error()),
	}
}
