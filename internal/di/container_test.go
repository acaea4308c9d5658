package di

import (
	"context"
	"testing"

	"sheetgenie/internal/config"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainerWithoutAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""

	c, err := BuildContainer(cfg, WithQuietLogging())
	require.NoError(t, err)
	defer func() { _ = c.Cleanup(context.Background()) }()

	require.Error(t, c.LLMError)
	assert.ErrorIs(t, c.LLMError, sgerrors.CodeUpstreamProvider)
	require.NotNil(t, c.Shell)
	require.NotNil(t, c.Sessions)
	assert.True(t, c.Metrics.Enabled())

	msg, _, err := c.Shell.Chat(context.Background(), "what is the total?")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.Error, "an unavailable provider surfaces as a chat error")
}

func TestBuildContainerWithClient(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.Metrics.Enabled = false

	client := llm.NewScriptedClient(llm.CallStep("delete_column", map[string]any{"column": "Total"}))
	c, err := BuildContainer(cfg, WithLLMClient(client))
	require.NoError(t, err)
	defer func() { _ = c.Cleanup(context.Background()) }()

	assert.NoError(t, c.LLMError)
	assert.False(t, c.Metrics.Enabled())

	_, snap, err := c.Shell.Chat(context.Background(), "drop the total column")
	require.NoError(t, err)
	assert.Equal(t, 6, snap.Columns)
	assert.Equal(t, 0, client.Remaining())
}
