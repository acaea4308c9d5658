package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	id "sheetgenie/internal/utils/id"
)

// Logger is the structured sink behind every component logger.
type Logger struct {
	logger *slog.Logger
}

// LogConfig configures the logger. Output defaults to stderr so stdout stays
// free for CLI results.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// ParseLevel maps a textual level onto slog, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// secretKeys are attribute keys whose values never reach the log verbatim.
var secretKeys = map[string]bool{
	"api_key":        true,
	"apikey":         true,
	"authorization":  true,
	"openai_api_key": true,
	"token":          true,
}

// redactSecrets masks secret-looking attributes, including inside groups.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] && a.Value.Kind() == slog.KindString {
		value := strings.TrimSpace(a.Value.String())
		if rest, ok := strings.CutPrefix(value, "Bearer "); ok {
			return slog.String(a.Key, "Bearer "+SanitizeAPIKey(rest))
		}
		return slog.String(a.Key, SanitizeAPIKey(value))
	}
	return a
}

func NewLogger(config LogConfig) *Logger {
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(config.Level),
		ReplaceAttr: redactSecrets,
	}

	var handler slog.Handler = slog.NewTextHandler(output, opts)
	if strings.EqualFold(config.Format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	}
	return &Logger{logger: slog.New(handler)}
}

// WithContext adds the request log id and chat session carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := id.FromContext(ctx).Attrs()
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// With adds fields to every line the returned logger writes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// Enabled reports whether lines at level would be written.
func (l *Logger) Enabled(level slog.Level) bool {
	return l.logger.Enabled(context.Background(), level)
}

// Log writes one line at level.
func (l *Logger) Log(level slog.Level, msg string, args ...any) {
	l.logger.Log(context.Background(), level, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// InfoContext logs at info level with the identifiers from ctx.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Info(msg, args...)
}

// SanitizeAPIKey keeps the first 8 and last 4 characters of long keys.
func SanitizeAPIKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 12:
		return "***"
	default:
		return key[:8] + "..." + key[len(key)-4:]
	}
}
