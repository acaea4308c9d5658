// Package config loads SheetGenie settings from defaults, a YAML file, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"net"
	"strconv"
	"time"

	"sheetgenie/internal/dispatch"
	"sheetgenie/internal/gsheets"
	"sheetgenie/internal/llm"
	"sheetgenie/internal/observability"
)

// Config is the effective configuration shared by the server and the CLI.
type Config struct {
	Server        ServerConfig           `mapstructure:"server" yaml:"server"`
	LLM           LLMConfig              `mapstructure:"llm" yaml:"llm"`
	Context       dispatch.ContextConfig `mapstructure:"context" yaml:"context"`
	Sessions      SessionsConfig         `mapstructure:"sessions" yaml:"sessions"`
	GoogleSheets  gsheets.Config         `mapstructure:"google_sheets" yaml:"google_sheets"`
	Observability observability.Config   `mapstructure:"observability" yaml:"observability"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	Debug        bool          `mapstructure:"debug" yaml:"debug"`
	CORS         []string      `mapstructure:"cors" yaml:"cors"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxUploadMB  int           `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// LLMConfig is the provider connection plus sampling parameters.
type LLMConfig struct {
	llm.Config  `mapstructure:",squash" yaml:",inline"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// SessionsConfig bounds the in-memory chat session store.
type SessionsConfig struct {
	Max int `mapstructure:"max" yaml:"max"`
}

// Default returns the built-in configuration.
func Default() Config {
	obs := observability.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			CORS:         []string{"*"},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxUploadMB:  16,
		},
		LLM: LLMConfig{
			Config: llm.Config{
				Provider:   "openai",
				Model:      "gpt-3.5-turbo",
				Timeout:    60 * time.Second,
				MaxRetries: 3,
			},
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		Context:       dispatch.DefaultContextConfig(),
		Sessions:      SessionsConfig{Max: 256},
		GoogleSheets:  gsheets.DefaultConfig(),
		Observability: obs,
	}
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
