package diff

import (
	"strings"
	"testing"

	"sheetgenie/internal/sheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(t *testing.T, rows ...[]any) *sheet.Table {
	t.Helper()
	tbl, err := sheet.FromAny(rows)
	require.NoError(t, err)
	return tbl
}

func TestGenerateUnified_IdenticalContent(t *testing.T) {
	gen := NewGenerator(3, false)
	content := "line1\nline2\nline3\n"

	result := gen.GenerateUnified(content, content, "sheet.csv")
	assert.Empty(t, result.UnifiedDiff)
	assert.Equal(t, "No changes", result.FormatSummary())
}

func TestGenerateUnified_Modification(t *testing.T) {
	gen := NewGenerator(1, false)
	oldContent := "a\nb\nc\nd\ne\n"
	newContent := "a\nb\nC\nd\ne\n"

	result := gen.GenerateUnified(oldContent, newContent, "sheet.csv")
	assert.Equal(t, 1, result.AddedLines)
	assert.Equal(t, 1, result.DeletedLines)
	assert.Equal(t, "--- a/sheet.csv\n+++ b/sheet.csv\n@@ -2,3 +2,3 @@\n b\n-c\n+C\n d\n", result.UnifiedDiff)
	assert.Equal(t, "+1 rows, -1 rows", result.FormatSummary())
}

func TestGenerateUnified_SeparateHunks(t *testing.T) {
	gen := NewGenerator(1, false)
	oldContent := "1\n2\n3\n4\n5\n6\n7\n8\n9\n"
	newContent := "1\nX\n3\n4\n5\n6\n7\nY\n9\n"

	result := gen.GenerateUnified(oldContent, newContent, "t")
	assert.Equal(t, 2, strings.Count(result.UnifiedDiff, "@@ -"))
	assert.Contains(t, result.UnifiedDiff, "@@ -1,3 +1,3 @@")
	assert.Contains(t, result.UnifiedDiff, "@@ -7,3 +7,3 @@")
}

func TestGenerateUnified_PureInsertion(t *testing.T) {
	gen := NewGenerator(0, false)
	result := gen.GenerateUnified("a\n", "a\nb\n", "t")
	assert.Equal(t, "--- a/t\n+++ b/t\n@@ -1,0 +2,1 @@\n+b\n", result.UnifiedDiff)
	assert.Equal(t, 0, result.DeletedLines)
}

func TestGenerateTables_AddedColumn(t *testing.T) {
	before := table(t, []any{"Product", "Q1"}, []any{"A", 100}, []any{"B", 50})
	after := table(t, []any{"Product", "Q1", "Q2"}, []any{"A", 100, 110}, []any{"B", 50, 55})

	result := NewGenerator(3, false).GenerateTables(before, after, "sheet")
	assert.Equal(t, 3, result.AddedLines)
	assert.Equal(t, 3, result.DeletedLines)
	assert.Contains(t, result.UnifiedDiff, "+Product,Q1,Q2")
	assert.Contains(t, result.UnifiedDiff, "-B,50")
}

func TestGenerateTables_FromNothing(t *testing.T) {
	after := table(t, []any{"A"}, []any{1})
	result := NewGenerator(3, false).GenerateTables(nil, after, "sheet")
	assert.Equal(t, 2, result.AddedLines)
	assert.Contains(t, result.UnifiedDiff, "@@ -0,0 +1,2 @@")
}

func TestGenerateUnified_WithColors(t *testing.T) {
	result := NewGenerator(3, true).GenerateUnified("a\n", "b\n", "t")
	assert.Contains(t, result.UnifiedDiff, "\x1b[")
}

func TestGenerateUnified_LargeRevision(t *testing.T) {
	big := strings.Repeat("x", maxDiffBytes+1)
	result := NewGenerator(3, false).GenerateUnified(big, "small", "t")
	assert.True(t, result.Skipped)
	assert.Equal(t, "Revision too large to diff", result.FormatSummary())
}
