// Package ctxlog carries the launch logger through context.Context so every
// stage of a bring-up (resolution, graph building, sequencing) logs with the
// same handler and run attributes.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. If no logger is
// found, it returns the default global logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// ForProcess returns a context whose logger tags every record with the
// given process name.
func ForProcess(ctx context.Context, name string) (context.Context, *slog.Logger) {
	logger := FromContext(ctx).With("process", name)
	return WithLogger(ctx, logger), logger
}
