// Package gsheets loads publicly shared Google Sheets without credentials.
// Several public endpoints are tried in order until one yields a table.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/httpclient"
	"sheetgenie/internal/logging"
	"sheetgenie/internal/observability"
	"sheetgenie/internal/sheet"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

const defaultBaseURL = "https://docs.google.com"

// Fetch methods, in the order they are tried.
const (
	MethodCSV          = "CSV Export"
	MethodJSON         = "JSON API"
	MethodAlternateCSV = "Alternative CSV"
	MethodHTML         = "Published HTML"
)

const accessHelp = "Could not access the Google Sheet. Please ensure:\n" +
	"• The sheet is publicly accessible (Anyone with the link can view)\n" +
	"• The sharing settings allow public access\n" +
	"• The URL is correct"

// Config configures the client.
type Config struct {
	BaseURL        string                        `mapstructure:"base_url" yaml:"base_url"`
	Timeout        time.Duration                 `mapstructure:"timeout" yaml:"timeout"`
	MaxBodyBytes   int64                         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	CircuitBreaker sgerrors.CircuitBreakerConfig `mapstructure:"-" yaml:"-"`
}

// DefaultConfig returns the production endpoints and limits.
func DefaultConfig() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		Timeout:        10 * time.Second,
		MaxBodyBytes:   httpclient.DefaultMaxBodyBytes,
		CircuitBreaker: sgerrors.DefaultCircuitBreakerConfig(),
	}
}

// Sheet is a fetched tab.
type Sheet struct {
	Table   *sheet.Table
	Ref     Ref
	Method  string
	Fetched time.Time
}

// Client fetches sheets. Concurrent fetches of the same tab share one request.
type Client struct {
	http    *http.Client
	baseURL string
	maxBody int64
	group   singleflight.Group
	metrics *observability.MetricsCollector
	tracer  *observability.TracerProvider
	logger  logging.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *observability.MetricsCollector) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTracer(tp *observability.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp }
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(logger) }
}

// NewClient builds a client. Zero config fields take their defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.CircuitBreaker.FailureThreshold <= 0 {
		cfg.CircuitBreaker = defaults.CircuitBreaker
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		maxBody: cfg.MaxBodyBytes,
		logger:  logging.NewComponentLogger("gsheets"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewWithCircuitBreaker(cfg.Timeout, c.logger, "google-sheets", cfg.CircuitBreaker)
	}
	return c
}

// Fetch loads the tab that rawURL points to. An unparseable URL is an
// InvalidRequest; a sheet no endpoint could read is an UpstreamProviderError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Sheet, error) {
	ref, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	ch := c.group.DoChan(ref.key(), func() (any, error) {
		// the shared fetch must outlive a caller that gives up early
		return c.fetch(context.WithoutCancel(ctx), ref)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("Shared in-flight fetch of sheet %s", ref.SheetID)
		}
		return res.Val.(*Sheet), nil
	}
}

type attempt struct {
	method string
	url    string
	parse  func([]byte) ([][]any, error)
	// csvOnly rejects 200 answers that are not CSV, such as login pages.
	csvOnly bool
}

func (c *Client) attempts(ref Ref) []attempt {
	base := fmt.Sprintf("%s/spreadsheets/d/%s", c.baseURL, url.PathEscape(ref.SheetID))
	gid := ref.GID
	if gid == "" {
		gid = "0"
	}
	gviz := base + "/gviz/tq?tqx=out:json"
	if ref.SheetName != "" {
		gviz += "&sheet=" + url.QueryEscape(ref.SheetName)
	}
	return []attempt{
		{method: MethodCSV, url: base + "/export?format=csv&gid=" + gid, parse: parseCSV, csvOnly: true},
		{method: MethodJSON, url: gviz, parse: parseGviz},
		{method: MethodAlternateCSV, url: base + "/export?format=csv", parse: parseCSV},
		{method: MethodHTML, url: base + "/pubhtml?single=true&gid=" + gid, parse: parsePublishedHTML},
	}
}

func (c *Client) fetch(ctx context.Context, ref Ref) (*Sheet, error) {
	ctx, span := c.tracer.StartSpan(ctx, observability.SpanGoogleSheetIO, attribute.String("sheet.id", ref.SheetID))
	defer span.End()
	logger := logging.FromContext(ctx, c.logger)

	var errs []error
	for _, a := range c.attempts(ref) {
		table, err := c.try(ctx, a)
		if err == nil {
			logger.Info("Loaded sheet %s via %s (%d rows, %d columns)", ref.SheetID, a.method, table.Rows(), table.Columns())
			span.SetAttributes(attribute.String("sheet.method", a.method))
			c.metrics.RecordIngest(ctx, "google_sheets", "success")
			return &Sheet{Table: table, Ref: ref, Method: a.method, Fetched: time.Now()}, nil
		}
		logger.Warn("%s failed for sheet %s: %v", a.method, ref.SheetID, err)
		errs = append(errs, fmt.Errorf("%s: %w", a.method, err))
		if errors.Is(err, sgerrors.CodeUpstreamProvider) {
			// circuit open: the remaining endpoints share the breaker
			break
		}
	}

	err := sgerrors.Wrap(sgerrors.CodeUpstreamProvider, errors.Join(errs...), "%s", accessHelp)
	span.SetStatus(codes.Error, err.Error())
	c.metrics.RecordIngest(ctx, "google_sheets", "error")
	return nil, err
}

func (c *Client) try(ctx context.Context, a attempt) (*sheet.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	body, err := httpclient.ReadOK(resp, c.maxBody)
	if err != nil {
		return nil, err
	}
	if a.csvOnly && !strings.Contains(contentType, "text/csv") {
		return nil, fmt.Errorf("expected text/csv, got %q", contentType)
	}
	rows, err := a.parse(body)
	if err != nil {
		return nil, err
	}
	return toTable(rows)
}

func toTable(rows [][]any) (*sheet.Table, error) {
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, errors.New("sheet is empty")
	}
	return sheet.FromAny(rows)
}

func blankRow(row []any) bool {
	for _, cell := range row {
		if cell == nil {
			continue
		}
		if s, ok := cell.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}
