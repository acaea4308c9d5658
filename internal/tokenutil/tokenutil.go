// Package tokenutil budgets prompt tokens with tiktoken-go. Without the
// cl100k_base encoding (offline and no cache) it falls back to a character
// heuristic.
package tokenutil

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const ellipsis = "..."

var loadEncoding = sync.OnceValue(func() *tiktoken.Tiktoken {
	e, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return e
})

func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if e := loadEncoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast approximates tokens as max(runes/4, words), at least 1 for
// non-blank text.
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	return max(len([]rune(trimmed))/4, len(strings.Fields(trimmed)), 1)
}

// TruncateToTokens cuts text to about maxTokens and marks the cut with "...".
// A non-positive limit returns text unchanged.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	if e := loadEncoding(); e != nil {
		tokens := e.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return e.Decode(tokens[:maxTokens]) + ellipsis
	}
	runes := []rune(text)
	if limit := maxTokens * 4; limit < len(runes) {
		return string(runes[:limit]) + ellipsis
	}
	return text
}

// FitLines keeps leading lines while their newline-joined cost fits in
// maxTokens and reports how many were dropped. The first line always
// survives, truncated when it alone is over budget.
func FitLines(lines []string, maxTokens int) ([]string, int) {
	if maxTokens <= 0 || len(lines) == 0 {
		return lines, 0
	}
	first := lines[0]
	used := CountTokens(first)
	if used > maxTokens {
		return []string{TruncateToTokens(first, maxTokens)}, len(lines) - 1
	}

	kept := []string{first}
	for _, line := range lines[1:] {
		cost := CountTokens(line) + 1
		if used+cost > maxTokens {
			break
		}
		used += cost
		kept = append(kept, line)
	}
	return kept, len(lines) - len(kept)
}
