package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"sheetgenie/internal/workbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigShow(t *testing.T) {
	t.Setenv("SHEETGENIE_LLM_API_KEY", "sk-test-1234567890abcd")

	out, err := run(t, "config", "show", "--model", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Contains(t, out, "model: gpt-4o-mini")
	assert.Contains(t, out, "sk-test-...abcd")
	assert.NotContains(t, out, "1234567890")

	out, err = run(t, "config", "show", "--sources", "--model", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Contains(t, out, "llm.model: flag")
	assert.Contains(t, out, "llm.api_key: environment")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("Region,Revenue\nNorth,10\nSouth,20\n"), 0o644))
	outPath := filepath.Join(dir, "out.xlsx")

	out, err := run(t, "export", "--file", in, "--out", outPath, "--insights")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved "+outPath)
	assert.Contains(t, out, "DATA ANALYSIS REPORT")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	table, err := workbook.Read("out.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Revenue"}, table.Header())
	assert.Equal(t, 2, table.Rows())
}

func TestExportRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello"), 0o644))

	_, err := run(t, "export", "--file", in, "--out", filepath.Join(dir, "out.xlsx"))
	require.Error(t, err)
}

func TestAskWithoutProviderFails(t *testing.T) {
	t.Setenv("SHEETGENIE_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	out, err := run(t, "ask", "what is the total?")
	require.Error(t, err)
	assert.Contains(t, out, "AI service")
}

func TestBulletsToMarkdown(t *testing.T) {
	got := bulletsToMarkdown("• Q1: up\n  ◦ skipped: x\nplain")
	assert.Equal(t, "- Q1: up\n  - skipped: x\nplain", got)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sheetgenie dev")
}
