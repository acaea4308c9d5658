package config

import (
	"time"

	"sheetgenie/internal/observability"

	"gopkg.in/yaml.v3"
)

// Show renders the effective settings as YAML with secrets masked.
func Show(meta Metadata) ([]byte, error) {
	return yaml.Marshal(printable(meta.settings, ""))
}

func printable(settings map[string]any, prefix string) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := v.(type) {
		case map[string]any:
			out[k] = printable(x, key)
		case time.Duration:
			out[k] = x.String()
		default:
			out[k] = v
		}
		if key == "llm.api_key" {
			if s, ok := v.(string); ok {
				out[k] = observability.SanitizeAPIKey(s)
			}
		}
	}
	return out
}

// Sources renders each key with where its value came from.
func Sources(meta Metadata) ([]byte, error) {
	sources := make(map[string]string, len(meta.sources))
	for _, key := range meta.Keys() {
		sources[key] = string(meta.Source(key))
	}
	return yaml.Marshal(sources)
}
