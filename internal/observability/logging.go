// Package observability provides structured logging context helpers for the
// compile pipeline. Attributes like the unit name and requested format travel
// on the context so every stage logs them without threading them by hand.
package observability

import (
	"context"
	"log/slog"
)

// LogContext holds structured logging context information.
type LogContext struct {
	RunID  string
	Unit   string
	Format string
	Stage  string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithRunID adds a compile-run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	lc := extractLogContext(ctx)
	lc.RunID = runID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithUnit adds a compilation-unit name to the context.
func WithUnit(ctx context.Context, unit string) context.Context {
	lc := extractLogContext(ctx)
	lc.Unit = unit
	return context.WithValue(ctx, logContextKey, lc)
}

// WithFormat adds the requested output format to the context.
func WithFormat(ctx context.Context, format string) context.Context {
	lc := extractLogContext(ctx)
	lc.Format = format
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

// extractLogContext retrieves or creates a LogContext from the context.
func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// getLogAttrs returns slog attributes from the context's LogContext.
func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := []slog.Attr{}

	if lc.RunID != "" {
		attrs = append(attrs, slog.String("run.id", lc.RunID))
	}
	if lc.Unit != "" {
		attrs = append(attrs, slog.String("unit", lc.Unit))
	}
	if lc.Format != "" {
		attrs = append(attrs, slog.String("format", lc.Format))
	}
	if lc.Stage != "" {
		attrs = append(attrs, slog.String("stage", lc.Stage))
	}

	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, append(getLogAttrs(ctx), attrs...)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, append(getLogAttrs(ctx), attrs...)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, append(getLogAttrs(ctx), attrs...)...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelDebug, msg, append(getLogAttrs(ctx), attrs...)...)
}
