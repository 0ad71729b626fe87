package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithUser tags every later log line in ctx with the authenticated user.
// Role is included so authorization denials can be read without a lookup.
func WithUser(ctx context.Context, userID, role string) context.Context {
	l := FromContext(ctx).With(
		slog.String("user_id", userID),
		slog.String("user_role", role),
	)
	return WithContext(ctx, l)
}
