package chat

import (
	"fmt"
	"strings"

	"sheetgenie/internal/dispatch"
)

const (
	bullet    = "•"
	subBullet = "◦"
)

// FormatResult renders a dispatch result as assistant text. Scalar results
// read as one sentence; multi-line results become a bulleted list.
func FormatResult(res *dispatch.Result) string {
	if res == nil {
		return "No operation was run."
	}
	if res.Operation == dispatch.OpDirectAnswer {
		return FormatAnswer(res.Explanation)
	}

	var text string
	if res.Success {
		text = bulletLines(res.Explanation)
	} else {
		text = "Error: " + res.Explanation
	}
	if ignored, ok := res.Details["ignored_tool_calls"].([]string); ok && len(ignored) > 0 {
		if !strings.HasPrefix(text, bullet) {
			text = bullet + " " + text
		}
		text += fmt.Sprintf("\n%s Only one operation runs per message; skipped: %s.", subBullet, strings.Join(ignored, ", "))
	}
	return text
}

// bulletLines leaves a single line alone and prefixes every unmarked line of
// a multi-line text with a bullet.
func bulletLines(text string) string {
	text = strings.TrimSpace(text)
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return text
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " ")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, bullet), strings.HasPrefix(trimmed, subBullet):
			out = append(out, line)
		default:
			out = append(out, bullet+" "+trimmed)
		}
	}
	return strings.Join(out, "\n")
}

// FormatAnswer turns a long plain-text answer into bullets, one per sentence.
// Text that is already bulleted, or has at most three sentences, is returned
// unchanged.
func FormatAnswer(text string) string {
	if text == "" || strings.Contains(text, bullet) || strings.Contains(text, subBullet) {
		return text
	}
	sentences := strings.Split(text, ". ")
	if len(sentences) <= 3 {
		return text
	}
	points := make([]string, 0, len(sentences))
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasSuffix(s, ".") {
			s += "."
		}
		points = append(points, bullet+" "+s)
	}
	return strings.Join(points, "\n")
}

// upstreamMessage is the assistant text for a failed model call.
func upstreamMessage(err error) string {
	return "I'm sorry, I couldn't reach the AI service: " + err.Error()
}
