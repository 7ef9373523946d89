package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext stores log in ctx for handlers further down the chain.
func WithContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the request logger, or slog.Default when none is set.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// With derives a child of the ctx logger carrying attrs and stores it back.
func With(ctx context.Context, attrs ...slog.Attr) (context.Context, *slog.Logger) {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	log := FromContext(ctx).With(args...)
	return WithContext(ctx, log), log
}
