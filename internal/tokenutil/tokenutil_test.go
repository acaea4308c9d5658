package tokenutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountTokensEmpty(t *testing.T) {
	require.Zero(t, CountTokens(""))
	require.Zero(t, EstimateFast("   "))
}

func TestCountTokensPositive(t *testing.T) {
	got := CountTokens("Product,Q1 Sales,Q2 Sales")
	require.Positive(t, got)
	require.Less(t, got, 25)
}

func TestEstimateFastUsesWordsForShortText(t *testing.T) {
	require.Equal(t, 3, EstimateFast("a b c"))
	require.Equal(t, 1, EstimateFast("x"))
}

func TestTruncateToTokens(t *testing.T) {
	short := "sum of Q1"
	require.Equal(t, short, TruncateToTokens(short, 100))
	require.Equal(t, short, TruncateToTokens(short, 0))

	long := strings.Repeat("Laptop Pro,15000,18000\n", 200)
	truncated := TruncateToTokens(long, 20)
	require.Less(t, len(truncated), len(long))
	require.True(t, strings.HasSuffix(truncated, "..."))
}

func TestFitLinesKeepsHeaderAndDropsTail(t *testing.T) {
	lines := []string{"Product,Q1,Q2"}
	for i := 0; i < 500; i++ {
		lines = append(lines, "Widget,100,200")
	}

	kept, dropped := FitLines(lines, 50)
	require.Equal(t, "Product,Q1,Q2", kept[0])
	require.Less(t, len(kept), len(lines))
	require.Equal(t, len(lines)-len(kept), dropped)

	all, none := FitLines(lines[:3], 1000)
	require.Len(t, all, 3)
	require.Zero(t, none)
}

func TestFitLinesTruncatesOversizedHeader(t *testing.T) {
	header := strings.Repeat("Quarterly Revenue Column,", 100)
	kept, dropped := FitLines([]string{header, "1,2,3"}, 10)
	require.Len(t, kept, 1)
	require.Equal(t, 1, dropped)
	require.True(t, strings.HasSuffix(kept[0], "..."))
	require.Less(t, len(kept[0]), len(header))
}
