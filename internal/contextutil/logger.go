// Package contextutil carries the request-scoped logger through context.Context.
package contextutil

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// LoggerFromContext returns the logger stored in ctx, or slog.Default when there is none.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With adds attributes to the context logger and returns both the new context and logger.
// Code called with the returned context logs with the same attributes.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	logger := LoggerFromContext(ctx).With(args...)
	return WithLogger(ctx, logger), logger
}
