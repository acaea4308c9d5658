package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sgerrors "sheetgenie/internal/errors"

	"github.com/stretchr/testify/require"
)

func fastRetry() sgerrors.RetryConfig {
	return sgerrors.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestOpenAIClientCompleteToolCall(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "value", r.Header.Get("X-Custom"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "gpt-4o-mini", payload["model"])
		require.Equal(t, "auto", payload["tool_choice"])
		tools := payload["tools"].([]any)
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]any)["function"].(map[string]any)
		require.Equal(t, "aggregate", fn["name"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{
					"content": "",
					"tool_calls": []any{
						map[string]any{"id": "call-1", "type": "function", "function": map[string]any{
							"name": "aggregate", "arguments": `{"column":"Q1","op":"sum"}`,
						}},
						map[string]any{"id": "call-2", "type": "function", "function": map[string]any{
							"name": "build_chart", "arguments": `{"x_key":"Product",`,
						}},
					},
				},
				"finish_reason": "tool_calls",
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{
		Model:   "gpt-4o-mini",
		APIKey:  "test-key",
		BaseURL: server.URL,
		Headers: map[string]string{"X-Custom": "value"},
	})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "sum Q1"}},
		Tools: []ToolDefinition{{
			Name:       "aggregate",
			Parameters: ParameterSchema{Type: "object", Properties: map[string]Property{"column": {Type: "string"}}},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, ReplyToolCall, reply.Kind)
	require.Equal(t, "aggregate", reply.Call.Name)
	require.Equal(t, map[string]any{"column": "Q1", "op": "sum"}, reply.Call.Arguments)
	require.Len(t, reply.Extra, 1)
	require.Nil(t, reply.Extra[0].Arguments)
	require.Equal(t, `{"x_key":"Product",`, reply.Extra[0].Raw)
	require.Equal(t, 17, reply.Usage.TotalTokens)
	require.Equal(t, "tool_calls", reply.StopReason)
}

func TestOpenAIClientCompleteText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hello there"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{Model: "m", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, ReplyText, reply.Kind)
	require.Equal(t, "Hello there", reply.Text)
	require.Nil(t, reply.Call)
}

func TestOpenAIClientMapsHTTPErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{Model: "m", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{})
	var perr *sgerrors.PermanentError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusUnauthorized, perr.StatusCode)
}

func TestOpenAIClientEmptyChoicesIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{Model: "m", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{})
	require.True(t, sgerrors.IsTransient(err))
}

func TestMapHTTPError(t *testing.T) {
	headers := http.Header{}
	headers.Set("Retry-After", "30")
	err := mapHTTPError(http.StatusTooManyRequests, []byte("slow down"), headers)
	var terr *sgerrors.TransientError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, 30, terr.RetryAfter)
	require.Equal(t, http.StatusTooManyRequests, terr.StatusCode)

	for _, status := range []int{408, 500, 502, 503, 504} {
		require.True(t, sgerrors.IsTransient(mapHTTPError(status, nil, nil)), status)
	}
	for _, status := range []int{400, 401, 403, 404} {
		require.True(t, sgerrors.IsPermanent(mapHTTPError(status, nil, nil)), status)
	}

	err = mapHTTPError(http.StatusInternalServerError, nil, nil)
	require.ErrorAs(t, err, &terr)
	require.Contains(t, terr.Err.Error(), "Internal Server Error")
}

func TestWrapRequestError(t *testing.T) {
	require.Equal(t, context.Canceled, wrapRequestError(context.Canceled))

	var terr *sgerrors.TransientError
	require.ErrorAs(t, wrapRequestError(context.DeadlineExceeded), &terr)
	require.ErrorAs(t, wrapRequestError(&net.DNSError{IsTimeout: true}), &terr)
	require.ErrorAs(t, wrapRequestError(net.ErrClosed), &terr)
}

func TestParseRetryAfter(t *testing.T) {
	require.Equal(t, 60, parseRetryAfter("60"))
	require.Zero(t, parseRetryAfter(""))
	require.Zero(t, parseRetryAfter("-5"))
	require.Zero(t, parseRetryAfter("soon"))
}

func TestNewReplyTagsToolCalls(t *testing.T) {
	text := NewReply("just words", nil)
	require.Equal(t, ReplyText, text.Kind)
	require.Equal(t, "text", text.Kind.String())

	calls := []ToolCall{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	reply := NewReply("", calls)
	require.Equal(t, ReplyToolCall, reply.Kind)
	require.Equal(t, "a", reply.Call.Name)
	require.Len(t, reply.Extra, 2)

	calls[0].Name = "changed"
	require.Equal(t, "a", reply.Call.Name)
}

func TestRetryClientRetriesTransientFailures(t *testing.T) {
	scripted := NewScriptedClient(
		ErrorStep(sgerrors.NewTransientError(errors.New("503"), "Service unavailable")),
		TextStep("recovered"),
	)
	client := NewRetryClient(scripted, RetryOptions{Retry: fastRetry()})

	reply, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, "recovered", reply.Text)
	require.Zero(t, scripted.Remaining())
	require.Len(t, scripted.Requests(), 2)
}

func TestRetryClientWrapsPermanentFailures(t *testing.T) {
	scripted := NewScriptedClient(
		ErrorStep(sgerrors.NewPermanentError(errors.New("401"), "Authentication failed. Please check your API key configuration.")),
		TextStep("never reached"),
	)
	client := NewRetryClient(scripted, RetryOptions{Retry: fastRetry()})

	_, err := client.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, sgerrors.CodeUpstreamProvider)
	require.Contains(t, err.Error(), "Authentication failed")
	require.Equal(t, 1, scripted.Remaining())
}

func TestRetryClientOpensCircuit(t *testing.T) {
	breaker := sgerrors.NewCircuitBreaker("test", sgerrors.CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour})
	scripted := NewScriptedClient(
		ErrorStep(sgerrors.NewPermanentError(errors.New("400"), "rejected")),
		TextStep("unused"),
	)
	client := NewRetryClient(scripted, RetryOptions{Retry: fastRetry(), CircuitBreaker: breaker})

	_, err := client.Complete(context.Background(), Request{})
	require.Error(t, err)

	_, err = client.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, sgerrors.CodeUpstreamProvider)
	require.Equal(t, 1, scripted.Remaining(), "open circuit must not reach the provider")
}

func TestScriptedClientExhausted(t *testing.T) {
	client := NewScriptedClient(RawCallStep("aggregate", `{"column": "Q1",}`))

	reply, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Nil(t, reply.Call.Arguments)
	require.Equal(t, `{"column": "Q1",}`, reply.Call.Raw)

	_, err = client.Complete(context.Background(), Request{})
	require.Error(t, err)
}

func TestNewClientValidatesProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "acme", Model: "m", APIKey: "k"}, RetryOptions{})
	require.ErrorIs(t, err, sgerrors.CodeUpstreamProvider)

	_, err = NewClient(Config{Provider: "openai", Model: "m"}, RetryOptions{})
	require.ErrorIs(t, err, sgerrors.CodeUpstreamProvider)

	client, err := NewClient(Config{Provider: "ollama", Model: "llama3"}, RetryOptions{})
	require.NoError(t, err)
	require.Equal(t, "llama3", client.Model())

	down := Unavailable("m", errors.New("no key"))
	_, err = down.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, sgerrors.CodeUpstreamProvider)
}
