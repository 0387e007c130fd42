package daemon

import (
	"log/slog"
	"os"

	"github.com/listingwire/scrapegate/pkg/gate"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger wraps slog.Logger with daemon-specific functionality
type Logger struct {
	*slog.Logger
	component string
}

// NewLogger creates a new structured logger for daemon components
func NewLogger(component string, level LogLevel) *Logger {
	var slogLevel slog.Level
	switch level {
	case LogLevelDebug:
		slogLevel = slog.LevelDebug
	case LogLevelInfo:
		slogLevel = slog.LevelInfo
	case LogLevelWarn:
		slogLevel = slog.LevelWarn
	case LogLevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	})

	return &Logger{
		Logger:    slog.New(handler),
		component: component,
	}
}

// WithComponent creates a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// Debug logs a debug message with component context
func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append([]any{"component", l.component}, args...)...)
}

// Info logs an info message with component context
func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"component", l.component}, args...)...)
}

// Warn logs a warning message with component context
func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append([]any{"component", l.component}, args...)...)
}

// Error logs an error message with component context
func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"component", l.component}, args...)...)
}

// LogDecision logs an admission decision
func (l *Logger) LogDecision(sourceID string, d gate.Decision) {
	l.Info("admission decision",
		"source", sourceID,
		"allowed", d.Allowed,
		"reason", d.Reason.String(),
		"wait_ms", d.WaitMillis())
}

// LogOutcome logs a reported request outcome
func (l *Logger) LogOutcome(sourceID string, success bool, errMsg string) {
	if success {
		l.Info("request recorded", "source", sourceID)
		return
	}
	l.Warn("request error recorded", "source", sourceID, "error", errMsg)
}

// LogSweep logs a sweep of stale error cooldowns
func (l *Logger) LogSweep(cleared int) {
	if cleared > 0 {
		l.Info("stale cooldowns cleared", "count", cleared)
	}
}

// LogError logs error events with context
func (l *Logger) LogError(operation string, err error, context ...any) {
	args := append([]any{"operation", operation, "error", err.Error()}, context...)
	l.Error("operation failed", args...)
}
