package dispatch

import (
	"fmt"
	"strings"

	"sheetgenie/internal/sheet"
	"sheetgenie/internal/tokenutil"
)

const systemPromptTemplate = `You are SheetGenie, an AI assistant that helps users with Excel spreadsheet tasks.
You can perform calculations, create charts, format cells, and provide insights about spreadsheet data.

%s

IMPORTANT FORMATTING RULES:
- Always format your responses in clear bullet points
- Use short, concise sentences
- Break down complex information into digestible points
- Use • for main points and ◦ for sub-points
- Keep each bullet point to 1-2 lines maximum
- Use numbers (1., 2., 3.) for sequential steps or rankings

When users ask for help, analyze their request and call exactly one tool if an operation is needed.
Use column names exactly as listed. Answer in plain text when no operation applies.`

// ContextConfig bounds the table description sent with every request.
type ContextConfig struct {
	MaxTokens  int `mapstructure:"max_tokens" yaml:"max_tokens"`
	SampleRows int `mapstructure:"sample_rows" yaml:"sample_rows"`
}

// DefaultContextConfig returns the default budget.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{MaxTokens: 1500, SampleRows: 20}
}

// TableContext describes a table compactly: dimensions, column names and the
// first rows as CSV, cut to the token budget.
func TableContext(t *sheet.Table, cfg ContextConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current spreadsheet data has %d rows and %d columns.\n", t.Rows(), t.Columns())
	fmt.Fprintf(&b, "Columns: %s.\n", strings.Join(t.Header(), ", "))

	numeric := make([]string, 0, t.Columns())
	for c, name := range t.Header() {
		if t.NumericColumn(c) {
			numeric = append(numeric, name)
		}
	}
	if len(numeric) > 0 {
		fmt.Fprintf(&b, "Numeric columns: %s.\n", strings.Join(numeric, ", "))
	}

	budget := 0
	if cfg.MaxTokens > 0 {
		budget = max(cfg.MaxTokens-tokenutil.CountTokens(b.String()), 1)
	}
	lines, _ := tokenutil.FitLines(t.CSVLines(cfg.SampleRows), budget)
	b.WriteString("Sample data (CSV, row 1 is the header):\n")
	b.WriteString(strings.Join(lines, "\n"))

	if omitted := t.Rows() - (len(lines) - 1); omitted > 0 {
		fmt.Fprintf(&b, "\n(%d more rows not shown)", omitted)
	}
	return b.String()
}

// SystemPrompt embeds the table context into the assistant instructions.
func SystemPrompt(t *sheet.Table, cfg ContextConfig) string {
	return fmt.Sprintf(systemPromptTemplate, TableContext(t, cfg))
}
