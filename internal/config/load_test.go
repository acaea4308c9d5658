package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolated(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OPENAI_API_KEY", "SHEETGENIE_LLM_API_KEY", "SHEETGENIE_SERVER_PORT",
		"SHEETGENIE_LLM_MODEL", "SHEETGENIE_SERVER_CORS",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName+".yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolated(t)

	cfg, meta, err := Load(WithSearchPaths(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, 256, cfg.Sessions.Max)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Positive(t, cfg.GoogleSheets.CircuitBreaker.FailureThreshold, "keys outside viper keep built-in values")
	assert.Equal(t, SourceDefault, meta.Source("server.port"))
	assert.Empty(t, meta.File())
}

func TestLoadPrecedence(t *testing.T) {
	isolated(t)
	dir := writeConfig(t, `
server:
  port: 9000
  read_timeout: 5s
llm:
  model: gpt-4o-mini
  temperature: 0.2
sessions:
  max: 10
`)
	t.Setenv("SHEETGENIE_LLM_MODEL", "gpt-4o")
	t.Setenv("OPENAI_API_KEY", "sk-test-0123456789abcd")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8000, "")
	flags.String("model", "", "")
	require.NoError(t, flags.Parse([]string{"--port", "7070"}))

	cfg, meta, err := Load(
		WithSearchPaths(dir),
		WithFlags(flags, map[string]string{"server.port": "port", "llm.model": "model"}),
	)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "flag beats file")
	assert.Equal(t, "gpt-4o", cfg.LLM.Model, "env beats file when flag unset")
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10, cfg.Sessions.Max)
	assert.Equal(t, "sk-test-0123456789abcd", cfg.LLM.APIKey)

	assert.Equal(t, SourceFlag, meta.Source("server.port"))
	assert.Equal(t, SourceEnv, meta.Source("llm.model"))
	assert.Equal(t, SourceEnv, meta.Source("llm.api_key"))
	assert.Equal(t, SourceFile, meta.Source("llm.temperature"))
	assert.Equal(t, SourceDefault, meta.Source("llm.max_tokens"))
	assert.Equal(t, filepath.Join(dir, FileName+".yaml"), meta.File())
}

func TestLoadPrefixedKeyBeatsOpenAIKey(t *testing.T) {
	isolated(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("SHEETGENIE_LLM_API_KEY", "sk-sheetgenie")

	cfg, _, err := Load(WithSearchPaths(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "sk-sheetgenie", cfg.LLM.APIKey)
}

func TestLoadListFromEnv(t *testing.T) {
	isolated(t)
	t.Setenv("SHEETGENIE_SERVER_CORS", "http://localhost:3000,http://localhost:5173")

	cfg, _, err := Load(WithSearchPaths(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.CORS)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolated(t)
	dir := writeConfig(t, `
llm:
  temperature: 3
sessions:
  max: 0
`)
	_, _, err := Load(WithSearchPaths(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.temperature")
	assert.Contains(t, err.Error(), "sessions.max")
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	isolated(t)
	_, _, err := Load(WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestLoadUnknownFlagBinding(t *testing.T) {
	isolated(t)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	_, _, err := Load(WithSearchPaths(t.TempDir()), WithFlags(flags, map[string]string{"server.port": "port"}))
	assert.Error(t, err)
}

func TestShowMasksAPIKey(t *testing.T) {
	isolated(t)
	t.Setenv("OPENAI_API_KEY", "sk-test-0123456789abcd")

	_, meta, err := Load(WithSearchPaths(t.TempDir()))
	require.NoError(t, err)

	out, err := Show(meta)
	require.NoError(t, err)
	assert.Contains(t, string(out), "sk-test-...abcd")
	assert.NotContains(t, string(out), "0123456789")
	assert.Contains(t, string(out), "read_timeout: 30s")

	sources, err := Sources(meta)
	require.NoError(t, err)
	assert.Contains(t, string(sources), "llm.api_key: environment")
}
