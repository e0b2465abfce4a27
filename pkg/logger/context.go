package logger

import (
	"context"
	"log/slog"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// With returns a context whose logger carries the extra fields.
func With(ctx context.Context, fields ...any) context.Context {
	l := From(ctx).With(fields...)
	return context.WithValue(ctx, loggerKey, l)
}

// WithActor tags every later log line of the request with the caller.
func WithActor(ctx context.Context, userID, role string) context.Context {
	return With(ctx, slog.Group("actor", slog.String("id", userID), slog.String("role", role)))
}

// From returns the request logger, or the process logger outside a request.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
