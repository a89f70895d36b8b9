package store

import (
	"context"

	"firewatch/internal/platform/store/pg"
)

// WithOp labels every statement issued under ctx; the SQL tracer logs it as "op"
func WithOp(ctx context.Context, op string) context.Context { return pg.WithOp(ctx, op) }

// Op returns the label set by WithOp, or ""
func Op(ctx context.Context) string { return pg.OpFrom(ctx) }
