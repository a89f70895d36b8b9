package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"firewatch/internal/platform/store/ch"

	"github.com/rs/zerolog"
)

type fakeCH struct {
	table   string
	rows    [][]any
	err     error
	pingErr error
	closed  bool
	qrows   ch.Rows
	execs   []string
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	f.table, f.rows = table, rows
	return f.err
}

func (f *fakeCH) Query(context.Context, string, ...any) (ch.Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.qrows, nil
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}
func (f *fakeCH) Ping(context.Context) error { return f.pingErr }
func (f *fakeCH) Close() error               { f.closed = true; return nil }

type fakeCHRows struct {
	n      int
	closed bool
}

func (r *fakeCHRows) Next() bool          { r.n--; return r.n >= 0 }
func (r *fakeCHRows) Scan(d ...any) error { *(d[0].(*int64)) = 7; return nil }
func (r *fakeCHRows) Err() error          { return nil }
func (r *fakeCHRows) Close() error        { r.closed = true; return nil }
func (r *fakeCHRows) Columns() []string   { return []string{"n"} }

func TestCHAdapter_InsertDelegates(t *testing.T) {
	f := &fakeCH{}
	a := newCHAdapter(f)
	a.trace = true

	rows := [][]any{{int64(1), "a"}, {int64(2), "b"}}
	if err := a.Insert(context.Background(), "incident_archive", rows); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if f.table != "incident_archive" || len(f.rows) != 2 {
		t.Fatalf("delegation mismatch: %s %d", f.table, len(f.rows))
	}

	f.err = errors.New("boom")
	if err := a.Insert(context.Background(), "t", rows); err == nil {
		t.Fatalf("expected error passthrough")
	}
}

func TestCHAdapter_QueryWrapsRows(t *testing.T) {
	r := &fakeCHRows{n: 1}
	a := newCHAdapter(&fakeCH{qrows: r})

	rows, err := a.Query(context.Background(), "SELECT count() FROM incident_archive")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var n int64
	if !rows.Next() {
		t.Fatalf("expected a row")
	}
	if err := rows.Scan(&n); err != nil || n != 7 {
		t.Fatalf("Scan = %d, %v", n, err)
	}
	if got := rows.Columns(); len(got) != 1 || got[0] != "n" {
		t.Fatalf("Columns = %v", got)
	}
	rows.Close()
	if !r.closed {
		t.Fatalf("Close not delegated")
	}
}

func TestCHAdapter_PingAndClose(t *testing.T) {
	f := &fakeCH{pingErr: errors.New("down")}
	a := newCHAdapter(f)
	if err := a.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
	var nilA *clickhouseAdapter
	if err := nilA.Ping(context.Background()); err == nil {
		t.Fatalf("nil adapter should error")
	}
	if err := a.Close(); err != nil || !f.closed {
		t.Fatalf("Close not delegated")
	}
}

func TestCHAdapter_Exec(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	a := newCHAdapter(f)
	if err := a.Exec(context.Background(), "CREATE TABLE x (a Int8) ENGINE = Memory"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(f.execs) != 1 {
		t.Fatalf("exec not forwarded: %v", f.execs)
	}
}

func TestCHAdapter_TraceLogsCalls(t *testing.T) {
	var buf bytes.Buffer
	f := &fakeCH{}
	a := newCHAdapter(f)
	a.log, a.trace = zerolog.New(&buf), true

	_ = a.Insert(context.Background(), "incident_archive", [][]any{{int64(1)}})
	f.err = errors.New("too many parts")
	_, _ = a.Query(context.Background(), "SELECT 1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 trace lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"call":"insert"`) || !strings.Contains(lines[0], `"rows":1`) {
		t.Fatalf("insert line = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"warn"`) || !strings.Contains(lines[1], "too many parts") {
		t.Fatalf("query line = %s", lines[1])
	}

	buf.Reset()
	a.trace = false
	_ = a.Exec(context.Background(), "SELECT 1")
	if buf.Len() != 0 {
		t.Fatalf("untraced adapter logged %s", buf.String())
	}
}
