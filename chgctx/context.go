// Package chgctx carries per-invocation flags and the logger on a context.
package chgctx

import (
	"context"
	"log/slog"
)

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexLogger
)

func IsVerbose(ctx context.Context) bool {
	val := ctx.Value(ctxIndexVerbose)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// Logger returns the logger stored on ctx or the default slog logger.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxIndexLogger).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxIndexLogger, logger)
}
