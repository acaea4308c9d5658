package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	sgerrors "sheetgenie/internal/errors"
)

// mapHTTPError classifies a non-2xx provider response.
func mapHTTPError(status int, body []byte, headers http.Header) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	baseErr := fmt.Errorf("http %d: %s", status, msg)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		perr := sgerrors.NewPermanentError(baseErr, "Authentication failed. Please check your API key configuration.")
		perr.StatusCode = status
		return perr
	case status == http.StatusTooManyRequests:
		terr := sgerrors.NewTransientError(baseErr, "API rate limit reached. Retrying with exponential backoff.")
		terr.StatusCode = status
		if headers != nil {
			terr.RetryAfter = parseRetryAfter(headers.Get("Retry-After"))
		}
		return terr
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		terr := sgerrors.NewTransientError(baseErr, "Request timed out. Retrying with backoff.")
		terr.StatusCode = status
		return terr
	case status >= 500:
		terr := sgerrors.NewTransientError(baseErr, fmt.Sprintf("Server error (%d). Retrying request.", status))
		terr.StatusCode = status
		return terr
	case status >= 400:
		perr := sgerrors.NewPermanentError(baseErr, fmt.Sprintf("Request rejected by the model provider (%d).", status))
		perr.StatusCode = status
		return perr
	default:
		terr := sgerrors.NewTransientError(baseErr, fmt.Sprintf("Unexpected response status %d.", status))
		terr.StatusCode = status
		return terr
	}
}

// wrapRequestError classifies transport failures. Cancellation passes through
// untouched so callers can tell it apart.
func wrapRequestError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sgerrors.NewTransientError(err, "Request timed out. Retrying with backoff.")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return sgerrors.NewTransientError(err, "Network timeout talking to the model provider.")
	}
	return sgerrors.NewTransientError(err, "Network connectivity issue. Retrying request.")
}

// parseRetryAfter reads a Retry-After header as seconds or an HTTP date.
func parseRetryAfter(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return secs
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return int(d.Seconds())
		}
	}
	return 0
}
