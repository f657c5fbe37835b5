package persistkit

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with persistkit-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPrefix adds a collection prefix field to the logger.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		Logger: l.Logger.With("prefix", prefix),
	}
}

// LogSet logs an insert-or-update operation.
func (l *Logger) LogSet(ctx context.Context, prefix string, key any, err error) {
	if err != nil {
		l.ErrorContext(ctx, "set failed",
			"prefix", prefix,
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "set completed",
			"prefix", prefix,
			"key", key,
		)
	}
}

// LogRemove logs a removal operation.
func (l *Logger) LogRemove(ctx context.Context, prefix string, key any, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"prefix", prefix,
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"prefix", prefix,
			"key", key,
		)
	}
}

// LogClear logs a clear operation.
func (l *Logger) LogClear(ctx context.Context, prefix string, removed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "clear failed",
			"prefix", prefix,
			"removed", removed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "clear completed",
			"prefix", prefix,
			"removed", removed,
		)
	}
}

// LogInit logs first-time initialization of a collection prefix.
func (l *Logger) LogInit(ctx context.Context, prefix, typeTag string) {
	l.DebugContext(ctx, "collection initialized",
		"prefix", prefix,
		"type", typeTag,
	)
}
