package hindex

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with hindex-specific context.
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

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(table string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", table),
	}
}

// WithColumn adds a column field to the logger.
func (l *Logger) WithColumn(column string) *Logger {
	return &Logger{
		Logger: l.Logger.With("column", column),
	}
}

// WithPartition adds a partition field to the logger.
func (l *Logger) WithPartition(partition string) *Logger {
	return &Logger{
		Logger: l.Logger.With("partition", partition),
	}
}

// LogAddData logs one per-stripe contribution to a partition writer.
func (l *Logger) LogAddData(ctx context.Context, file string, offset int64, values int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add data failed",
			"file", file,
			"offset", offset,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add data completed",
			"file", file,
			"offset", offset,
			"values", values,
		)
	}
}

// LogPersist logs a partition persist operation.
func (l *Logger) LogPersist(ctx context.Context, path string, keys int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "persist completed",
			"path", path,
			"keys", keys,
		)
	}
}

// LogSerialize logs an index serialize operation.
func (l *Logger) LogSerialize(ctx context.Context, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "serialize failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "serialize completed",
			"bytes", bytes,
		)
	}
}

// LogLookup logs an index lookup.
func (l *Logger) LogLookup(ctx context.Context, op string, matched bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "lookup failed",
			"op", op,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "lookup completed",
			"op", op,
			"matched", matched,
		)
	}
}
