package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"firewatch/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// idRows serves one int64 per row and satisfies pgx.Rows
type idRows struct {
	ids    []int64
	at     int
	err    error
	closed bool
}

func (r *idRows) Close()                        { r.closed = true }
func (r *idRows) Err() error                    { return r.err }
func (r *idRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *idRows) Conn() *pgx.Conn               { return nil }
func (r *idRows) RawValues() [][]byte           { return nil }
func (r *idRows) Values() ([]any, error)        { return []any{r.ids[r.at-1]}, nil }

func (r *idRows) FieldDescriptions() []pgconn.FieldDescription {
	return []pgconn.FieldDescription{{Name: "id"}}
}

func (r *idRows) Next() bool {
	if r.err != nil || r.at >= len(r.ids) {
		return false
	}
	r.at++
	return true
}

func (r *idRows) Scan(dst ...any) error {
	p, ok := dst[0].(*int64)
	if !ok {
		return errors.New("want *int64")
	}
	*p = r.ids[r.at-1]
	return nil
}

type scanFn func(dst ...any) error

func (f scanFn) Scan(dst ...any) error { return f(dst...) }

// stubConn records statements and answers from canned values
type stubConn struct {
	sqls    []string
	tag     string
	execErr error
	rows    pgx.Rows
	rowErr  error
}

func (c *stubConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.sqls = append(c.sqls, sql)
	return pgconn.NewCommandTag(c.tag), c.execErr
}

func (c *stubConn) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	c.sqls = append(c.sqls, sql)
	if c.rows == nil {
		return nil, errors.New("no rows configured")
	}
	return c.rows, nil
}

func (c *stubConn) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	c.sqls = append(c.sqls, sql)
	return scanFn(func(dst ...any) error {
		if c.rowErr != nil {
			return c.rowErr
		}
		*(dst[0].(*int)) = 7
		return nil
	})
}

type captureTracer struct {
	evs []pg.QueryEvent
	ops []string
}

func (c *captureTracer) OnQuery(ctx context.Context, ev pg.QueryEvent) {
	c.evs = append(c.evs, ev)
	c.ops = append(c.ops, pg.OpFrom(ctx))
}

func TestTraced_ReportsEveryStatement(t *testing.T) {
	tr := &captureTracer{}
	conn := &stubConn{tag: "UPDATE 2", rows: &idRows{ids: []int64{4, 9}}}
	q := traced{conn: conn, tracer: tr}
	ctx := pg.WithOp(context.Background(), "clustering.attach")

	ct, err := q.Exec(ctx, "UPDATE detections SET incident_id = $1 WHERE incident_id IS NULL", int64(3))
	if err != nil || ct.RowsAffected() != 2 || ct.String() != "UPDATE 2" {
		t.Fatalf("Exec = %v, %v", ct, err)
	}

	rs, err := q.Query(ctx, "SELECT id FROM incidents")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if cols := rs.Columns(); len(cols) != 1 || cols[0] != "id" {
		t.Fatalf("Columns = %v", cols)
	}
	var got []int64
	for rs.Next() {
		var id int64
		if err := rs.Scan(&id); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		got = append(got, id)
	}
	rs.Close()
	if len(got) != 2 || got[1] != 9 {
		t.Fatalf("ids = %v", got)
	}

	var n int
	if err := q.QueryRow(ctx, "SELECT 7").Scan(&n); err != nil || n != 7 {
		t.Fatalf("QueryRow = %d, %v", n, err)
	}

	if len(tr.evs) != 3 {
		t.Fatalf("events = %d, want 3", len(tr.evs))
	}
	for i, op := range tr.ops {
		if op != "clustering.attach" {
			t.Fatalf("event %d op = %q", i, op)
		}
	}
	if !tr.evs[0].Slow {
		t.Fatalf("zero threshold should flag every statement")
	}
}

func TestTraced_NegativeThresholdNeverSlow(t *testing.T) {
	tr := &captureTracer{}
	q := traced{conn: &stubConn{tag: "DELETE 0"}, tracer: tr, slow: -time.Millisecond}
	if _, err := q.Exec(context.Background(), "DELETE FROM detections"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(tr.evs) != 1 || tr.evs[0].Slow {
		t.Fatalf("events = %+v", tr.evs)
	}
}

func TestTraced_PropagatesErrors(t *testing.T) {
	tr := &captureTracer{}
	conn := &stubConn{execErr: errors.New("exec failed"), rowErr: errors.New("scan failed")}
	q := traced{conn: conn, tracer: tr}
	ctx := context.Background()

	if _, err := q.Exec(ctx, "x"); err == nil {
		t.Fatalf("expected Exec error")
	}
	if _, err := q.Query(ctx, "x"); err == nil {
		t.Fatalf("expected Query error")
	}
	var n int
	if err := q.QueryRow(ctx, "x").Scan(&n); err == nil {
		t.Fatalf("expected Scan error")
	}
	for i, ev := range tr.evs {
		if ev.Err == nil {
			t.Fatalf("event %d carries no error", i)
		}
	}
}

func TestTraced_NilTracerIsQuiet(t *testing.T) {
	q := traced{conn: &stubConn{tag: "INSERT 0 1"}}
	if ct, err := q.Exec(context.Background(), "INSERT INTO detections DEFAULT VALUES"); err != nil || ct.RowsAffected() != 1 {
		t.Fatalf("Exec = %v, %v", ct, err)
	}
}

func TestPGAdapter_PingWithoutPool(t *testing.T) {
	var a *pgAdapter
	if err := a.Ping(context.Background()); err == nil {
		t.Fatalf("nil adapter should not be ready")
	}
}
