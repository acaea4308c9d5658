package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/httpclient"
	"sheetgenie/internal/logging"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	maxCompletionBytes   = 8 << 20
)

// Wire format of the chat completions endpoint.
type (
	wireFunction struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
		Arguments   string          `json:"arguments,omitempty"`
	}
	wireToolCall struct {
		ID       string       `json:"id"`
		Type     string       `json:"type"`
		Function wireFunction `json:"function"`
	}
	wireMessage struct {
		Role       string         `json:"role"`
		Content    string         `json:"content"`
		ToolCallID string         `json:"tool_call_id,omitempty"`
		ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	}
	wireTool struct {
		Type     string       `json:"type"`
		Function wireFunction `json:"function"`
	}
	completionRequest struct {
		Model       string        `json:"model"`
		Messages    []wireMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		Stream      bool          `json:"stream"`
		Tools       []wireTool    `json:"tools,omitempty"`
		ToolChoice  string        `json:"tool_choice,omitempty"`
	}
	completionResponse struct {
		Choices []struct {
			Message      wireMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

type openaiClient struct {
	model      string
	apiKey     string
	endpoint   string
	headers    map[string]string
	maxRetries int
	http       *http.Client
	logger     logging.Logger
}

// NewOpenAIClient talks to any OpenAI-compatible chat completions API.
func NewOpenAIClient(config Config) (Client, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, errors.New("llm model is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := logging.NewComponentLogger("llm-openai")

	return &openaiClient{
		model:      config.Model,
		apiKey:     config.APIKey,
		endpoint:   baseURL + "/chat/completions",
		headers:    config.Headers,
		maxRetries: config.MaxRetries,
		http:       httpclient.New(timeout, logger),
		logger:     logger,
	}, nil
}

func (c *openaiClient) Model() string { return c.model }

func (c *openaiClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	logger := logging.FromContext(ctx, c.logger)

	body, err := json.Marshal(c.encode(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	logger.Debug("POST %s model=%s messages=%d tools=%d", c.endpoint, c.model, len(req.Messages), len(req.Tools))

	started := time.Now()
	resp, err := c.send(ctx, body)
	if err != nil {
		logger.Debug("Completion request failed: %v", err)
		return nil, err
	}

	reply, err := c.decode(resp, logger)
	if err != nil {
		return nil, err
	}
	reply.Latency = time.Since(started)
	logger.Debug("Completion %s in %v (stop=%s, tokens=%d+%d)", reply.Kind, reply.Latency,
		reply.StopReason, reply.Usage.PromptTokens, reply.Usage.CompletionTokens)
	return reply, nil
}

func (c *openaiClient) encode(req Request) completionRequest {
	out := completionRequest{
		Model:       c.model,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, wireMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			ToolCalls:  encodeToolCalls(msg.ToolCalls),
		})
	}
	for _, tool := range req.Tools {
		if !validToolName.MatchString(tool.Name) {
			continue
		}
		params, err := json.Marshal(tool.Parameters)
		if err != nil {
			continue
		}
		out.Tools = append(out.Tools, wireTool{Type: "function", Function: wireFunction{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		}})
	}
	if len(out.Tools) > 0 {
		out.ToolChoice = "auto"
	}
	return out
}

// send performs the HTTP round trip and returns the body of a 2xx answer.
func (c *openaiClient) send(ctx context.Context, body []byte) (*completionResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.maxRetries > 0 {
		httpReq.Header.Set("X-Retry-Limit", strconv.Itoa(c.maxRetries))
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := httpclient.ReadAllWithLimit(resp.Body, maxCompletionBytes)
	if err != nil {
		return nil, wrapRequestError(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, raw, resp.Header)
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, sgerrors.NewPermanentError(fmt.Errorf("decode response: %w", err), "The model provider returned an unreadable response.")
	}
	if out.Error != nil && out.Error.Message != "" {
		msg := out.Error.Message
		if out.Error.Type != "" {
			msg = out.Error.Type + ": " + msg
		}
		return nil, mapHTTPError(resp.StatusCode, []byte(msg), resp.Header)
	}
	return &out, nil
}

func (c *openaiClient) decode(resp *completionResponse, logger logging.Logger) (*Reply, error) {
	if len(resp.Choices) == 0 {
		return nil, sgerrors.NewTransientError(errors.New("no choices in response"), "LLM returned an empty response. Please retry.")
	}
	choice := resp.Choices[0]

	calls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		call := ToolCall{ID: tc.ID, Name: tc.Function.Name, Raw: tc.Function.Arguments}
		if strings.TrimSpace(call.Raw) != "" {
			if err := json.Unmarshal([]byte(call.Raw), &call.Arguments); err != nil {
				logger.Debug("Arguments for %s are not valid JSON; keeping raw text", call.Name)
				call.Arguments = nil
			}
		}
		calls = append(calls, call)
	}

	reply := NewReply(choice.Message.Content, calls)
	reply.StopReason = choice.FinishReason
	reply.Usage = resp.Usage
	return reply, nil
}

var validToolName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// encodeToolCalls replays earlier tool calls. Calls with names the API
// would reject are dropped.
func encodeToolCalls(calls []ToolCall) []wireToolCall {
	var out []wireToolCall
	for _, call := range calls {
		if !validToolName.MatchString(call.Name) {
			continue
		}
		args := call.Raw
		if args == "" {
			args = "{}"
			if len(call.Arguments) > 0 {
				if data, err := json.Marshal(call.Arguments); err == nil {
					args = string(data)
				}
			}
		}
		out = append(out, wireToolCall{
			ID:       call.ID,
			Type:     "function",
			Function: wireFunction{Name: call.Name, Arguments: args},
		})
	}
	return out
}
