// Package logger provides the structured logging used throughout plexdrive.
// It wraps log/slog with a small severity vocabulary (TRACE..ERROR, plus OFF)
// that maps onto the CLI's -v verbosity flag, and supports both a
// human-readable text format and a JSON format for machine consumption.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Severity names accepted by SetVerbosity and used in the "severity" log
// field.
const (
	OFF     = "OFF"
	ERROR   = "ERROR"
	WARNING = "WARNING"
	INFO    = "INFO"
	DEBUG   = "DEBUG"
	TRACE   = "TRACE"
)

// Custom slog levels. slog only defines Debug/Info/Warn/Error; TRACE sits
// below Debug and OFF sits above Error.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

var severityToLevel = map[string]slog.Level{
	OFF:     LevelOff,
	ERROR:   LevelError,
	WARNING: LevelWarn,
	INFO:    LevelInfo,
	DEBUG:   LevelDebug,
	TRACE:   LevelTrace,
}

var levelToSeverity = map[slog.Level]string{
	LevelError: ERROR,
	LevelWarn:  WARNING,
	LevelInfo:  INFO,
	LevelDebug: DEBUG,
	LevelTrace: TRACE,
}

type loggerFactory struct {
	format string
	level  *slog.LevelVar
}

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				lvl, _ := a.Value.Any().(slog.Level)
				sev, ok := levelToSeverity[lvl]
				if !ok {
					sev = lvl.String()
				}
				return slog.String("severity", sev)
			}
			return a
		},
	}

	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

var (
	defaultLoggerFactory = &loggerFactory{format: "text", level: new(slog.LevelVar)}
	defaultLogger        = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, defaultLoggerFactory.level))
)

// SetVerbosity maps the CLI's -v[vvvv] count (0..5) onto a severity: 0 is
// ERROR-and-above, 5 is everything including TRACE.
func SetVerbosity(count int) {
	levels := []string{ERROR, WARNING, INFO, DEBUG, TRACE}
	if count < 0 {
		count = 0
	}
	if count >= len(levels) {
		count = len(levels) - 1
	}
	setLoggingLevel(levels[count], defaultLoggerFactory.level)
}

// SetFormat switches between "text" and "json" output.
func SetFormat(format string) {
	defaultLoggerFactory.format = format
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, defaultLoggerFactory.level))
}

func setLoggingLevel(severity string, programLevel *slog.LevelVar) {
	level, ok := severityToLevel[severity]
	if !ok {
		level = LevelInfo
	}
	programLevel.Set(level)
}

func log(ctx context.Context, level slog.Level, format string, v ...any) {
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	if len(v) > 0 {
		defaultLogger.Log(ctx, level, fmt.Sprintf(format, v...))
		return
	}
	defaultLogger.Log(ctx, level, format)
}

// Tracef logs at TRACE severity, the most verbose level (off by default).
func Tracef(format string, v ...any) { log(context.Background(), LevelTrace, format, v...) }

// Debugf logs at DEBUG severity.
func Debugf(format string, v ...any) { log(context.Background(), LevelDebug, format, v...) }

// Infof logs at INFO severity.
func Infof(format string, v ...any) { log(context.Background(), LevelInfo, format, v...) }

// Warnf logs at WARNING severity.
func Warnf(format string, v ...any) { log(context.Background(), LevelWarn, format, v...) }

// Errorf logs at ERROR severity.
func Errorf(format string, v ...any) { log(context.Background(), LevelError, format, v...) }
