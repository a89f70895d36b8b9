package store

import (
	"context"
	"time"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/store/ch"

	"github.com/rs/zerolog"
)

// chConn is what the adapter uses from *ch.CH
type chConn interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) error
	Ping(ctx context.Context) error
	Close() error
}

// clickhouseAdapter is the Clickhouse seam; with trace set it logs every call
type clickhouseAdapter struct {
	inner chConn
	log   logger.Logger
	trace bool
}

var _ Clickhouse = (*clickhouseAdapter)(nil)

func newCHAdapter(c chConn) *clickhouseAdapter { return &clickhouseAdapter{inner: c} }

// traced logs one call at info; failures log at warn
func (a *clickhouseAdapter) traced(what string, began time.Time, err error) *zerolog.Event {
	if !a.trace {
		return nil
	}
	e := a.log.Info()
	if err != nil {
		e = a.log.Warn().Err(err)
	}
	return e.Str("call", what).Dur("elapsed_ms", time.Since(began))
}

func (a *clickhouseAdapter) Insert(ctx context.Context, table string, rows [][]any) error {
	began := time.Now()
	err := a.inner.Insert(ctx, table, rows)
	a.traced("insert", began, err).Str("table", table).Int("rows", len(rows)).Msg("ch")
	return err
}

func (a *clickhouseAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	began := time.Now()
	rs, err := a.inner.Query(ctx, sql, args...)
	a.traced("query", began, err).Str("sql", sql).Msg("ch")
	if err != nil {
		return nil, err
	}
	return chRows{rs}, nil
}

func (a *clickhouseAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	began := time.Now()
	err := a.inner.Exec(ctx, sql, args...)
	a.traced("exec", began, err).Str("sql", sql).Msg("ch")
	return err
}

func (a *clickhouseAdapter) Ping(ctx context.Context) error {
	if a == nil || a.inner == nil {
		return perr.New(perr.ErrorCodeUnavailable, "ch: not open")
	}
	return a.inner.Ping(ctx)
}

func (a *clickhouseAdapter) Close() error { return a.inner.Close() }

// chRows drops the error from ch.Rows.Close
type chRows struct{ ch.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
