package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"sheetgenie/internal/chat"
	"sheetgenie/internal/sheet"

	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// MarkdownRenderer renders assistant replies in the terminal.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer sizes word wrap to the terminal.
func NewMarkdownRenderer() (*MarkdownRenderer, error) {
	termWidth := 80
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		termWidth = min(width-4, 120)
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(termWidth),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &MarkdownRenderer{renderer: renderer}, nil
}

// Render turns bullet text into a markdown list and renders it.
func (mr *MarkdownRenderer) Render(text string) string {
	if mr == nil || text == "" {
		return text
	}
	out, err := mr.renderer.Render(bulletsToMarkdown(text))
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func bulletsToMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		switch {
		case strings.HasPrefix(trimmed, "• "):
			lines[i] = "- " + strings.TrimPrefix(trimmed, "• ")
		case strings.HasPrefix(trimmed, "◦ "):
			lines[i] = "  - " + strings.TrimPrefix(trimmed, "◦ ")
		}
	}
	return strings.Join(lines, "\n")
}

// newRenderer returns nil when output is not a terminal; replies then print verbatim.
func newRenderer() *MarkdownRenderer {
	if !isTTY() {
		return nil
	}
	r, err := NewMarkdownRenderer()
	if err != nil {
		return nil
	}
	return r
}

func printReply(w io.Writer, r *MarkdownRenderer, msg chat.Message) {
	if msg.Error != "" && msg.Result == nil {
		fmt.Fprintln(w, cliError(msg.Text))
		return
	}
	fmt.Fprintln(w, r.Render(msg.Text))
	if msg.Result != nil && msg.Result.Chart != nil {
		c := msg.Result.Chart
		fmt.Fprintf(w, "%s %s chart %q: %s over %s\n", cyan("▣"), c.Kind, c.Title, strings.Join(c.YKeys, ", "), c.XKey)
	}
}

// printTable writes t as a boxed table, truncated to maxRows when positive.
func printTable(w io.Writer, t *sheet.Table, maxRows int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, t.Columns())
	for i, h := range t.Header() {
		header[i] = h
	}
	tw.AppendHeader(header)

	rows := t.Rows()
	if maxRows > 0 && rows > maxRows {
		rows = maxRows
	}
	for r := 0; r < rows; r++ {
		row := make(table.Row, t.Columns())
		for c, v := range t.Row(r) {
			row[c] = v.String()
		}
		tw.AppendRow(row)
	}
	tw.Render()
	if rows < t.Rows() {
		fmt.Fprintf(w, "%s\n", gray(fmt.Sprintf("(%d of %d rows)", rows, t.Rows())))
	} else {
		fmt.Fprintf(w, "%s\n", gray(fmt.Sprintf("(%d rows)", t.Rows())))
	}
}
