package logging

import (
	"context"
	"strings"

	"sheetgenie/internal/utils/id"
)

// fieldLogger is implemented by loggers that can carry identifiers as
// structured attributes.
type fieldLogger interface {
	WithFields(id.Fields) Logger
}

// WithFields tags every line logger writes with the given identifiers.
func WithFields(logger Logger, fields id.Fields) Logger {
	if IsNil(logger) {
		return Nop()
	}
	if fields.IsZero() {
		return logger
	}
	if fl, ok := logger.(fieldLogger); ok {
		return fl.WithFields(fields)
	}
	return &prefixLogger{logger: logger, prefix: fieldPrefix(fields)}
}

// FromContext returns logger tagged with the request and session ids on ctx.
func FromContext(ctx context.Context, logger Logger) Logger {
	return WithFields(logger, id.FromContext(ctx))
}

// prefixLogger adds the identifiers as a text prefix for loggers that only
// understand format strings.
type prefixLogger struct {
	logger Logger
	prefix string
}

func (l *prefixLogger) Debug(format string, args ...any) { l.logger.Debug(l.prefix+format, args...) }
func (l *prefixLogger) Info(format string, args ...any)  { l.logger.Info(l.prefix+format, args...) }
func (l *prefixLogger) Warn(format string, args ...any)  { l.logger.Warn(l.prefix+format, args...) }
func (l *prefixLogger) Error(format string, args ...any) { l.logger.Error(l.prefix+format, args...) }

func fieldPrefix(f id.Fields) string {
	var b strings.Builder
	if f.LogID != "" {
		b.WriteString("logid=" + f.LogID + " ")
	}
	if f.SessionID != "" {
		b.WriteString("session=" + f.SessionID + " ")
	}
	// keep literal percent signs out of the format string
	return strings.ReplaceAll(b.String(), "%", "%%")
}
