package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpErrorMatchesCodeSentinel(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", New(CodeColumnNotFound, "column %q not found", "Q5"))

	require.True(t, stderrors.Is(err, CodeColumnNotFound))
	require.False(t, stderrors.Is(err, CodeAxisKeyNotFound))
	require.Equal(t, CodeColumnNotFound, CodeOf(err))
	require.Equal(t, `dispatch: column "Q5" not found`, err.Error())

	var opErr *OpError
	require.True(t, stderrors.As(err, &opErr))
	require.Equal(t, `column "Q5" not found`, opErr.Message)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("zip: not a valid zip file")
	err := Wrap(CodeFileFormat, cause, "could not read %s", "book.xlsx")

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, CodeFileFormat)
}

func TestCauseFindsInnermostError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(CodeUpstreamProvider, fmt.Errorf("complete: %w", cause), "%s", FormatForUser(cause))

	require.Equal(t, "The AI service is not reachable. Please check the provider URL and try again.", err.Error())
	require.Same(t, cause, Cause(err))
	require.Nil(t, Cause(nil))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(CodeFileFormat, "bad"), http.StatusBadRequest},
		{New(CodeUpstreamProvider, "down"), http.StatusBadGateway},
		{New(CodeMalformedToolCall, "bad args"), http.StatusBadRequest},
		{New(CodeUnknownOperation, "nope"), http.StatusUnprocessableEntity},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestTransientClassification(t *testing.T) {
	require.True(t, IsTransient(&TransientError{Err: stderrors.New("x"), StatusCode: 503}))
	require.False(t, IsTransient(NewPermanentError(stderrors.New("x"), "bad key")))
	require.True(t, IsTransient(stderrors.New("dial tcp: connection refused")))
	require.True(t, IsTransient(stderrors.New("HTTP 502: bad gateway")))
	require.False(t, IsTransient(New(CodeColumnNotFound, "column not found")))
	require.True(t, IsPermanent(stderrors.New("status 401 unauthorized")))
}

func TestFormatForUserPrefersExplicitMessages(t *testing.T) {
	require.Equal(t, "bad key", FormatForUser(NewPermanentError(stderrors.New("401"), "bad key")))
	require.Contains(t, FormatForUser(stderrors.New("429 too many requests")), "rate limiting")
	require.Equal(t, "plain", FormatForUser(stderrors.New("plain")))
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return New(CodeInvalidExpression, "bad")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRecoversFromTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(stderrors.New("503"), "unavailable")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, calls)
}

func TestRetryExhaustion(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return NewTransientError(stderrors.New("timeout"), "")
	})
	require.ErrorContains(t, err, "max retries exceeded")
	require.Equal(t, 3, calls)
}

func TestRetryAfterHintWins(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Millisecond, MaxDelay: time.Minute}
	hinted := &TransientError{Err: stderrors.New("429"), RetryAfter: 7}
	require.Equal(t, 7*time.Second, cfg.wait(0, hinted))
	require.Equal(t, 2*time.Millisecond, cfg.wait(1, stderrors.New("timeout")))

	capped := RetryConfig{BaseDelay: time.Second, MaxDelay: 3 * time.Second, JitterFactor: 0.5}
	for attempt := 0; attempt < 6; attempt++ {
		require.LessOrEqual(t, capped.Backoff(attempt), 3*time.Second)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultRetryConfig(), func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("google-sheets", CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute})
	cb.now = func() time.Time { return now }

	fail := func(context.Context) (int, error) { return 0, stderrors.New("503") }
	ok := func(context.Context) (int, error) { return 1, nil }

	_, _ = ExecuteFunc(cb, context.Background(), fail)
	_, _ = ExecuteFunc(cb, context.Background(), fail)
	require.Equal(t, StateOpen, cb.State())

	_, err := ExecuteFunc(cb, context.Background(), ok)
	require.ErrorIs(t, err, CodeUpstreamProvider)

	now = now.Add(2 * time.Minute)
	got, err := ExecuteFunc(cb, context.Background(), ok)
	require.NoError(t, err)
	require.Equal(t, 1, got)
	require.Equal(t, StateClosed, cb.State())
}
