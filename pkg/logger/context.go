package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With returns a context carrying a logger enriched with the given
// attributes. Handlers down the chain pick it up via From.
func With(ctx context.Context, args ...any) context.Context {
	l := From(ctx).With(args...)
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request-scoped logger, or the process logger when
// the context carries none.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return L()
}
