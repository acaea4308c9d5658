// Package diff renders line diffs between table revisions.
package diff

import (
	"fmt"
	"strings"

	"sheetgenie/internal/sheet"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxDiffBytes skips diffs of very large revisions.
const maxDiffBytes = 10 * 1024 * 1024

// Generator handles unified diff generation
type Generator struct {
	contextLines int
	colorEnabled bool
}

// NewGenerator creates a new diff generator
func NewGenerator(contextLines int, colorEnabled bool) *Generator {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Generator{
		contextLines: contextLines,
		colorEnabled: colorEnabled,
	}
}

// DiffResult contains the generated diff and statistics
type DiffResult struct {
	UnifiedDiff  string `json:"diff"`
	AddedLines   int    `json:"added_lines"`
	DeletedLines int    `json:"deleted_lines"`
	Skipped      bool   `json:"skipped,omitempty"`
}

type opKind int

const (
	opEqual opKind = iota
	opInsert
	opDelete
)

type lineOp struct {
	kind   opKind
	text   string
	oldNum int
	newNum int
}

// TableText renders a table as CSV lines, one per row, header first.
func TableText(t *sheet.Table) string {
	if t == nil {
		return ""
	}
	return strings.Join(t.CSVLines(0), "\n") + "\n"
}

// GenerateTables diffs two table revisions. A nil table is empty.
func (g *Generator) GenerateTables(oldTable, newTable *sheet.Table, name string) *DiffResult {
	return g.GenerateUnified(TableText(oldTable), TableText(newTable), name)
}

// GenerateUnified creates a unified diff between old and new content
func (g *Generator) GenerateUnified(oldContent, newContent, name string) *DiffResult {
	if oldContent == newContent {
		return &DiffResult{}
	}
	if len(oldContent) > maxDiffBytes || len(newContent) > maxDiffBytes {
		return &DiffResult{
			UnifiedDiff: fmt.Sprintf("--- a/%s\n+++ b/%s\n@@ Large revision (>10MB), diff skipped @@\n", name, name),
			Skipped:     true,
		}
	}

	ops := lineOps(oldContent, newContent)

	var out strings.Builder
	out.WriteString(g.colorize("--- a/"+name+"\n", color.FgRed))
	out.WriteString(g.colorize("+++ b/"+name+"\n", color.FgGreen))

	result := &DiffResult{}
	for _, h := range g.hunks(ops) {
		g.writeHunk(&out, ops[h[0]:h[1]])
	}
	for _, op := range ops {
		switch op.kind {
		case opInsert:
			result.AddedLines++
		case opDelete:
			result.DeletedLines++
		case opEqual:
		}
	}
	result.UnifiedDiff = out.String()
	return result
}

// lineOps runs a line-mode diff and numbers every resulting line.
func lineOps(oldContent, newContent string) []lineOp {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ops []lineOp
	oldNum, newNum := 1, 1
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			op := lineOp{text: strings.TrimSuffix(line, "\n"), oldNum: oldNum, newNum: newNum}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				op.kind = opEqual
				oldNum++
				newNum++
			case diffmatchpatch.DiffInsert:
				op.kind = opInsert
				newNum++
			case diffmatchpatch.DiffDelete:
				op.kind = opDelete
				oldNum++
			}
			ops = append(ops, op)
		}
	}
	return ops
}

// hunks groups changed lines with their context into [start, end) ranges.
func (g *Generator) hunks(ops []lineOp) [][2]int {
	var out [][2]int
	for i := 0; i < len(ops); i++ {
		if ops[i].kind == opEqual {
			continue
		}
		start := max(0, i-g.contextLines)
		end := i + 1
		for j := i + 1; j < len(ops); j++ {
			if ops[j].kind == opEqual {
				continue
			}
			if j-end > 2*g.contextLines {
				break
			}
			end = j + 1
		}
		end = min(len(ops), end+g.contextLines)
		if n := len(out); n > 0 && out[n-1][1] >= start {
			out[n-1][1] = end
		} else {
			out = append(out, [2]int{start, end})
		}
		i = end - 1
	}
	return out
}

func (g *Generator) writeHunk(out *strings.Builder, ops []lineOp) {
	oldCount, newCount := 0, 0
	for _, op := range ops {
		if op.kind != opInsert {
			oldCount++
		}
		if op.kind != opDelete {
			newCount++
		}
	}
	oldStart, newStart := ops[0].oldNum, ops[0].newNum
	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}
	out.WriteString(g.colorize(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount), color.FgCyan))
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			out.WriteString(" " + op.text + "\n")
		case opInsert:
			out.WriteString(g.colorize("+"+op.text+"\n", color.FgGreen))
		case opDelete:
			out.WriteString(g.colorize("-"+op.text+"\n", color.FgRed))
		}
	}
}

// colorize applies color to text if color is enabled
func (g *Generator) colorize(text string, colorAttr color.Attribute) string {
	if !g.colorEnabled {
		return text
	}
	c := color.New(colorAttr)
	c.EnableColor()
	return c.Sprint(text)
}

// FormatSummary returns a human-readable summary of changes
func (dr *DiffResult) FormatSummary() string {
	if dr.Skipped {
		return "Revision too large to diff"
	}
	if dr.AddedLines == 0 && dr.DeletedLines == 0 {
		return "No changes"
	}

	parts := []string{}
	if dr.AddedLines > 0 {
		parts = append(parts, fmt.Sprintf("+%d rows", dr.AddedLines))
	}
	if dr.DeletedLines > 0 {
		parts = append(parts, fmt.Sprintf("-%d rows", dr.DeletedLines))
	}

	return strings.Join(parts, ", ")
}
