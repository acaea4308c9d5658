package llm

import (
	"context"
	"time"
)

// Client is the language-model oracle. A completion yields either plain text
// or a tool call; it never executes anything itself.
type Client interface {
	Complete(ctx context.Context, req Request) (*Reply, error)

	// Model returns the model identifier
	Model() string
}

// Request contains all parameters for one completion.
type Request struct {
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// Message is one conversation entry sent to the model.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a tool invocation requested by the model. Raw keeps the
// arguments exactly as received; Arguments is nil when Raw is not valid JSON.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Raw       string         `json:"raw_arguments,omitempty"`
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema is the JSON schema of a tool's arguments.
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Usage tracks token consumption
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ReplyKind tags a Reply.
type ReplyKind int

const (
	ReplyText ReplyKind = iota
	ReplyToolCall
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyText:
		return "text"
	case ReplyToolCall:
		return "tool_call"
	default:
		return "unknown"
	}
}

// Reply is the model's answer: plain text, or a tool call. When the model
// asks for several tools, the first is Call and the rest are Extra.
type Reply struct {
	Kind       ReplyKind     `json:"kind"`
	Text       string        `json:"text,omitempty"`
	Call       *ToolCall     `json:"call,omitempty"`
	Extra      []ToolCall    `json:"extra,omitempty"`
	StopReason string        `json:"stop_reason,omitempty"`
	Usage      Usage         `json:"usage"`
	Latency    time.Duration `json:"-"`
}

// NewReply builds the tagged reply from a message body and its tool calls.
func NewReply(text string, calls []ToolCall) *Reply {
	if len(calls) == 0 {
		return &Reply{Kind: ReplyText, Text: text}
	}
	call := calls[0]
	r := &Reply{Kind: ReplyToolCall, Text: text, Call: &call}
	if len(calls) > 1 {
		r.Extra = append([]ToolCall(nil), calls[1:]...)
	}
	return r
}

// Config configures a provider client.
type Config struct {
	Provider   string            `mapstructure:"provider" yaml:"provider"`
	Model      string            `mapstructure:"model" yaml:"model"`
	BaseURL    string            `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string            `mapstructure:"api_key" yaml:"api_key"`
	Timeout    time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int               `mapstructure:"max_retries" yaml:"max_retries"`
	Headers    map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
}
