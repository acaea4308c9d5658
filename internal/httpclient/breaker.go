// Package httpclient builds the outbound HTTP clients used for the model
// provider and Google Sheets downloads.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/logging"
)

const userAgent = "SheetGenie/1.0"

// New returns a client with a timeout, a fixed user agent and a redirect cap.
func New(timeout time.Duration, logger logging.Logger) *http.Client {
	logger = logging.OrNop(logger)
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentRoundTripper{base: http.DefaultTransport},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				logger.Warn("Stopped following redirects at %s", req.URL.Redacted())
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// NewWithCircuitBreaker builds a client whose requests fail fast once the
// upstream has failed repeatedly.
func NewWithCircuitBreaker(timeout time.Duration, logger logging.Logger, name string, config sgerrors.CircuitBreakerConfig) *http.Client {
	client := New(timeout, logger)
	client.Transport = WrapTransportWithCircuitBreaker(client.Transport, name, config)
	return client
}

// WrapTransportWithCircuitBreaker wraps a transport with circuit breaker protection.
func WrapTransportWithCircuitBreaker(base http.RoundTripper, name string, config sgerrors.CircuitBreakerConfig) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if name == "" {
		name = "http-client"
	}
	return &circuitBreakerRoundTripper{
		base:    base,
		breaker: sgerrors.NewCircuitBreaker(name, config),
	}
}

type userAgentRoundTripper struct {
	base http.RoundTripper
}

func (t *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}
	return t.base.RoundTrip(req)
}

type circuitBreakerRoundTripper struct {
	base    http.RoundTripper
	breaker *sgerrors.CircuitBreaker
}

func (t *circuitBreakerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := t.breaker.Allow(); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			t.breaker.Mark(nil)
			return nil, err
		}
		t.breaker.Mark(err)
		return nil, err
	}
	if isBreakerFailureStatus(resp.StatusCode) {
		t.breaker.Mark(fmt.Errorf("http status %d", resp.StatusCode))
	} else {
		t.breaker.Mark(nil)
	}
	return resp, nil
}

// 4xx answers mean the sheet is private or missing, not that the upstream is down.
func isBreakerFailureStatus(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}
