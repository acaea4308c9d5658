// Package logging gives packages a printf-style logger backed by the shared
// structured sink.
package logging

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"

	"sheetgenie/internal/observability"
	"sheetgenie/internal/utils/id"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func Nop() Logger { return nopLogger{} }

// IsNil also catches interfaces that hold a nil pointer.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	}
	return false
}

func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

var defaultSink atomic.Pointer[observability.Logger]

func init() {
	defaultSink.Store(observability.NewLogger(observability.LogConfig{Level: "info"}))
}

// SetDefault swaps the sink used by NewComponentLogger. Loggers created
// earlier keep writing to the old sink.
func SetDefault(sink *observability.Logger) {
	if sink != nil {
		defaultSink.Store(sink)
	}
}

func NewComponentLogger(component string) Logger {
	return FromObservabilityWithComponent(defaultSink.Load(), component)
}

// FromObservabilityWithComponent adapts a structured logger, tagging each line
// with component when it is set.
func FromObservabilityWithComponent(sink *observability.Logger, component string) Logger {
	if sink == nil {
		return Nop()
	}
	if component != "" {
		sink = sink.With("component", component)
	}
	return &sinkLogger{sink: sink}
}

type sinkLogger struct {
	sink *observability.Logger
}

func (l *sinkLogger) WithFields(fields id.Fields) Logger {
	return &sinkLogger{sink: l.sink.With(fields.Attrs()...)}
}

// logf skips formatting for levels the sink drops.
func (l *sinkLogger) logf(level slog.Level, format string, args []any) {
	if !l.sink.Enabled(level) {
		return
	}
	l.sink.Log(level, fmt.Sprintf(format, args...))
}

func (l *sinkLogger) Debug(format string, args ...any) { l.logf(slog.LevelDebug, format, args) }
func (l *sinkLogger) Info(format string, args ...any)  { l.logf(slog.LevelInfo, format, args) }
func (l *sinkLogger) Warn(format string, args ...any)  { l.logf(slog.LevelWarn, format, args) }
func (l *sinkLogger) Error(format string, args ...any) { l.logf(slog.LevelError, format, args) }
