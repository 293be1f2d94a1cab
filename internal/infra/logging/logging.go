package logging

import (
	"context"
	"log/slog"
	"os"
)

// SetupJSON sets slog's default logger to use JSON output at the given level.
func SetupJSON(level slog.Level) {
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	)
	slog.SetDefault(logger)
}

// Component returns the default logger tagged with the component name.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// Security logs an event a human must review, e.g. a forged webhook.
func Security(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.WarnContext(ctx, msg, append([]any{"security_event", true}, args...)...)
}
