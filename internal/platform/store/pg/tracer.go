package pg

import (
	"context"
	"strings"
	"time"

	"firewatch/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent is one statement round trip
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives one event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

type opKey struct{}

// WithOp labels statements issued under ctx, e.g. "clustering.attach"
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

// OpFrom returns the WithOp label or ""
func OpFrom(ctx context.Context) string {
	op, _ := ctx.Value(opKey{}).(string)
	return op
}

// Tracer logs every statement at info, slow ones at warn.
// The level is pinned to debug so LOG_SQL works regardless of LOG_LEVEL.
func Tracer(root logger.Logger) QueryTracer {
	return sqlLog{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type sqlLog struct{ log logger.Logger }

func (s sqlLog) OnQuery(ctx context.Context, ev QueryEvent) {
	e := s.log.Info()
	if ev.Slow {
		e = s.log.Warn()
	}
	if op := OpFrom(ctx); op != "" {
		e = e.Str("op", op)
	}
	e.Dur("elapsed_ms", time.Duration(ev.ElapsedUS)*time.Microsecond).
		Bool("slow", ev.Slow).
		Str("sql", oneLine(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}

// oneLine folds SQL whitespace runs into single spaces
func oneLine(sql string) string { return strings.Join(strings.Fields(sql), " ") }
