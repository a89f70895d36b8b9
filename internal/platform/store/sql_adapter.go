package store

import (
	"context"
	"strconv"
	"time"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxConn is what *pgxpool.Pool and pgx.Tx have in common
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// traced runs statements on conn and reports each one to tracer.
// A negative slow threshold never flags a statement.
type traced struct {
	conn   pgxConn
	tracer pg.QueryTracer
	slow   time.Duration
}

func (t traced) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	began := time.Now()
	ct, err := t.conn.Exec(ctx, sql, args...)
	t.report(ctx, sql, args, began, err)
	return commandTag{ct}, err
}

func (t traced) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	began := time.Now()
	rs, err := t.conn.Query(ctx, sql, args...)
	t.report(ctx, sql, args, began, err)
	if err != nil {
		return nil, err
	}
	return pgxRows{rs}, nil
}

// QueryRow reports once the caller scans, since pgx defers errors until then
func (t traced) QueryRow(ctx context.Context, sql string, args ...any) Row {
	began := time.Now()
	r := t.conn.QueryRow(ctx, sql, args...)
	return scanHook{r: r, done: func(err error) { t.report(ctx, sql, args, began, err) }}
}

func (t traced) report(ctx context.Context, sql string, args []any, began time.Time, err error) {
	if t.tracer == nil {
		return
	}
	took := time.Since(began)
	t.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: took.Microseconds(),
		Err:       err,
		Slow:      t.slow >= 0 && took >= t.slow,
	})
}

// pgAdapter is the pooled TxRunner handed to repos
type pgAdapter struct {
	traced
	db          *pg.PG
	stmtTimeout time.Duration
}

func newPGAdapter(p *pg.PG, stmtTimeout time.Duration) *pgAdapter {
	return &pgAdapter{
		traced: traced{
			conn:   p.Pool,
			tracer: p.Tracer,
			slow:   time.Duration(p.SlowMs) * time.Millisecond,
		},
		db:          p,
		stmtTimeout: stmtTimeout,
	}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.db == nil {
		return perr.New(perr.ErrorCodeUnavailable, "pg: not open")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error {
	a.db.Close()
	return nil
}

// Tx runs fn inside one transaction. Any error from fn, or a panic, rolls it back.
// statement_timeout is set transaction-local when configured.
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) (err error) {
	tx, err := a.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback(ctx)
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	q := a.traced
	q.conn = tx
	if a.stmtTimeout > 0 {
		ms := strconv.FormatInt(a.stmtTimeout.Milliseconds(), 10)
		if _, err := q.Exec(ctx, "SELECT set_config('statement_timeout', $1, true)", ms); err != nil {
			return err
		}
	}
	if err := fn(q); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// scanHook calls done with the Scan outcome
type scanHook struct {
	r    pgx.Row
	done func(error)
}

func (s scanHook) Scan(dst ...any) error {
	err := s.r.Scan(dst...)
	s.done(err)
	return err
}

type pgxRows struct{ pgx.Rows }

func (r pgxRows) Columns() []string {
	fds := r.FieldDescriptions()
	names := make([]string, 0, len(fds))
	for _, fd := range fds {
		names = append(names, fd.Name)
	}
	return names
}

type commandTag struct{ pgconn.CommandTag }
