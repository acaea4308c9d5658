package dispatch

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/llm"

	"github.com/kaptinlin/jsonrepair"
)

// decodeArguments returns the call's arguments, repairing malformed JSON
// (trailing commas, single quotes, truncated objects) before giving up.
func decodeArguments(call llm.ToolCall) (arguments, bool, error) {
	if call.Arguments != nil {
		return arguments(call.Arguments), false, nil
	}
	raw := strings.TrimSpace(call.Raw)
	if raw == "" {
		return arguments{}, false, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return arguments(out), false, nil
	}
	fixed, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, false, sgerrors.Wrap(sgerrors.CodeMalformedToolCall, err, "arguments for %s are not valid JSON", call.Name)
	}
	if err := json.Unmarshal([]byte(fixed), &out); err != nil || out == nil {
		return nil, false, sgerrors.New(sgerrors.CodeMalformedToolCall, "arguments for %s are not a JSON object", call.Name)
	}
	return arguments(out), true, nil
}

// arguments gives typed access to tool arguments. Every accessor failure is a
// MalformedToolCall.
type arguments map[string]any

func malformed(format string, args ...any) error {
	return sgerrors.New(sgerrors.CodeMalformedToolCall, format, args...)
}

// first returns the first present key among names.
func (a arguments) first(names ...string) (string, any, bool) {
	for _, n := range names {
		if v, ok := a[n]; ok && v != nil {
			return n, v, true
		}
	}
	return "", nil, false
}

// str returns a required non-empty string.
func (a arguments) str(names ...string) (string, error) {
	key, v, ok := a.first(names...)
	if !ok {
		return "", malformed("missing required argument %q", names[0])
	}
	s, isStr := v.(string)
	if !isStr {
		return "", malformed("argument %q must be a string, got %T", key, v)
	}
	if strings.TrimSpace(s) == "" {
		return "", malformed("argument %q must not be empty", key)
	}
	return strings.TrimSpace(s), nil
}

// optStr returns an optional string, or fallback when absent.
func (a arguments) optStr(fallback string, names ...string) (string, error) {
	key, v, ok := a.first(names...)
	if !ok {
		return fallback, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", malformed("argument %q must be a string, got %T", key, v)
	}
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return strings.TrimSpace(s), nil
}

// strs returns a required non-empty list of strings. A single string is
// accepted as a one-element list.
func (a arguments) strs(names ...string) ([]string, error) {
	key, v, ok := a.first(names...)
	if !ok {
		return nil, malformed("missing required argument %q", names[0])
	}
	var out []string
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) != "" {
			out = []string{strings.TrimSpace(val)}
		}
	case []any:
		for i, item := range val {
			s, isStr := item.(string)
			if !isStr {
				return nil, malformed("argument %q[%d] must be a string, got %T", key, i, item)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, val...)
	default:
		return nil, malformed("argument %q must be a list of strings, got %T", key, v)
	}
	if len(out) == 0 {
		return nil, malformed("argument %q must name at least one column", key)
	}
	return out, nil
}

// optNum returns an optional number; numeric strings are accepted.
func (a arguments) optNum(fallback float64, names ...string) (float64, error) {
	key, v, ok := a.first(names...)
	if !ok {
		return fallback, nil
	}
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, malformed("argument %q must be a number", key)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(val), "%"), 64)
		if err != nil {
			return 0, malformed("argument %q must be a number, got %q", key, val)
		}
		f = parsed
	default:
		return 0, malformed("argument %q must be a number, got %T", key, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, malformed("argument %q must be a finite number", key)
	}
	return f, nil
}

// optInt returns an optional whole number.
func (a arguments) optInt(fallback int, names ...string) (int, error) {
	f, err := a.optNum(float64(fallback), names...)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, malformed("argument %q must be a whole number", names[0])
	}
	return int(f), nil
}
