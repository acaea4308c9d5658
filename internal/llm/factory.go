package llm

import (
	"context"
	"strings"

	sgerrors "sheetgenie/internal/errors"
)

var providerBaseURLs = map[string]string{
	"openai":     defaultOpenAIBaseURL,
	"openrouter": "https://openrouter.ai/api/v1",
	"deepseek":   "https://api.deepseek.com/v1",
	"ollama":     "http://localhost:11434/v1",
}

// Providers lists the provider names NewClient understands.
func Providers() []string {
	return []string{"openai", "openrouter", "deepseek", "ollama"}
}

// NewClient builds the provider client described by config and wraps it with
// retries. All supported providers speak the OpenAI chat completions API.
func NewClient(config Config, opts RetryOptions) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))
	if provider == "" {
		provider = "openai"
	}
	defaultURL, ok := providerBaseURLs[provider]
	if !ok {
		return nil, sgerrors.New(sgerrors.CodeUpstreamProvider, "unsupported llm provider %q (supported: %s)",
			config.Provider, strings.Join(Providers(), ", "))
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultURL
	}
	if provider != "ollama" && strings.TrimSpace(config.APIKey) == "" {
		return nil, sgerrors.New(sgerrors.CodeUpstreamProvider, "no API key configured for %s; set OPENAI_API_KEY or llm.api_key", provider)
	}
	if opts.Retry.MaxAttempts == 0 && config.MaxRetries > 0 {
		opts.Retry = sgerrors.DefaultRetryConfig()
		opts.Retry.MaxAttempts = config.MaxRetries
	}

	base, err := NewOpenAIClient(config)
	if err != nil {
		return nil, sgerrors.Wrap(sgerrors.CodeUpstreamProvider, err, "%v", err)
	}
	return NewRetryClient(base, opts), nil
}

type unavailableClient struct {
	model  string
	reason error
}

// Unavailable returns a client whose every completion fails with reason. The
// server uses it when no provider could be configured, so the rest of the API
// keeps working.
func Unavailable(model string, reason error) Client {
	return &unavailableClient{model: model, reason: reason}
}

func (u *unavailableClient) Complete(context.Context, Request) (*Reply, error) {
	return nil, sgerrors.Wrap(sgerrors.CodeUpstreamProvider, u.reason, "AI service unavailable: %v", u.reason)
}

func (u *unavailableClient) Model() string {
	return u.model
}
