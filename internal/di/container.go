// Package di wires the configured runtime: logging, telemetry, the model
// client and everything that sits on top of it.
package di

import (
	"context"
	"errors"
	"fmt"
	"os"

	"sheetgenie/internal/app"
	"sheetgenie/internal/chat"
	"sheetgenie/internal/config"
	"sheetgenie/internal/dispatch"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/gsheets"
	"sheetgenie/internal/llm"
	"sheetgenie/internal/logging"
	"sheetgenie/internal/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config   config.Config
	Logger   logging.Logger
	Metrics  *observability.MetricsCollector
	Tracer   *observability.TracerProvider
	LLM      llm.Client
	Chat     *chat.Handler
	Sessions *chat.Store
	Sheets   *gsheets.Client
	Shell    *app.Shell

	// LLMError is why the configured provider could not be built. The
	// container still works; chat turns fail with it.
	LLMError error
}

// Option adjusts how the container is built.
type Option func(*buildOptions)

type buildOptions struct {
	client llm.Client
	quiet  bool
}

// WithLLMClient replaces the configured provider, mainly for tests.
func WithLLMClient(client llm.Client) Option {
	return func(o *buildOptions) { o.client = client }
}

// WithQuietLogging raises the log level to warn for one-shot CLI commands.
func WithQuietLogging() Option {
	return func(o *buildOptions) { o.quiet = true }
}

// BuildContainer builds the dependency graph for cfg.
func BuildContainer(cfg config.Config, opts ...Option) (*Container, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	logCfg := cfg.Observability.Logging.Sink(os.Stderr)
	if o.quiet && observability.ParseLevel(logCfg.Level) < observability.ParseLevel("warn") {
		logCfg.Level = "warn"
	}
	logging.SetDefault(observability.NewLogger(logCfg))
	logger := logging.NewComponentLogger("DI")

	metrics, err := observability.NewMetricsCollector(cfg.Observability.Metrics)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	tracer, err := observability.NewTracerProvider(cfg.Observability.Tracing)
	if err != nil {
		_ = metrics.Shutdown(context.Background())
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
	}

	c.LLM = o.client
	if c.LLM == nil {
		client, err := llm.NewClient(cfg.LLM.Config, llm.RetryOptions{
			CircuitBreaker: sgerrors.NewCircuitBreaker("llm-"+cfg.LLM.Model, sgerrors.DefaultCircuitBreakerConfig()),
			Metrics:        metrics,
			Tracer:         tracer,
			Logger:         logging.NewComponentLogger("llm"),
		})
		if err != nil {
			logger.Warn("LLM provider %s unavailable, chat is disabled: %v", cfg.LLM.Provider, err)
			c.LLMError = err
			client = llm.Unavailable(cfg.LLM.Model, err)
		} else {
			logger.Info("LLM provider %s model %s key %s", cfg.LLM.Provider, cfg.LLM.Model,
				observability.SanitizeAPIKey(cfg.LLM.APIKey))
		}
		c.LLM = client
	}

	dispatcher := dispatch.New(c.LLM,
		dispatch.WithContextConfig(cfg.Context),
		dispatch.WithSampling(cfg.LLM.Temperature, cfg.LLM.MaxTokens),
		dispatch.WithMetrics(metrics),
		dispatch.WithTracer(tracer),
		dispatch.WithLogger(logging.NewComponentLogger("dispatch")),
	)
	c.Chat = chat.NewHandler(dispatcher,
		chat.WithMetrics(metrics),
		chat.WithTracer(tracer),
		chat.WithLogger(logging.NewComponentLogger("chat")),
	)
	c.Sessions = chat.NewStore(cfg.Sessions.Max, metrics)
	c.Sheets = gsheets.NewClient(cfg.GoogleSheets,
		gsheets.WithMetrics(metrics),
		gsheets.WithTracer(tracer),
		gsheets.WithLogger(logging.NewComponentLogger("gsheets")),
	)
	c.Shell = app.NewShell(
		app.WithChat(c.Chat),
		app.WithSheetFetcher(c.Sheets),
		app.WithShellMetrics(metrics),
		app.WithShellLogger(logging.NewComponentLogger("shell")),
	)

	logger.Debug("Container built: sessions=%d metrics=%t tracing=%t",
		cfg.Sessions.Max, metrics.Enabled(), cfg.Observability.Tracing.Enabled)
	return c, nil
}

// Cleanup flushes telemetry.
func (c *Container) Cleanup(ctx context.Context) error {
	return errors.Join(
		c.Tracer.Shutdown(ctx),
		c.Metrics.Shutdown(ctx),
	)
}
