package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeTag int64

func (c fakeTag) String() string      { return "UPDATE" }
func (c fakeTag) RowsAffected() int64 { return int64(c) }

type fakeRowQuerier struct {
	execTag  CommandTag
	execErr  error
	rows     Rows
	queryErr error
	row      Row
	lastSQL  string
}

func (f *fakeRowQuerier) Exec(_ context.Context, sql string, _ ...any) (CommandTag, error) {
	f.lastSQL = sql
	return f.execTag, f.execErr
}

func (f *fakeRowQuerier) Query(_ context.Context, sql string, _ ...any) (Rows, error) {
	f.lastSQL = sql
	return f.rows, f.queryErr
}

func (f *fakeRowQuerier) QueryRow(_ context.Context, sql string, _ ...any) Row {
	f.lastSQL = sql
	return f.row
}

type scanFunc func(dest ...any) error

func (s scanFunc) Scan(dest ...any) error { return s(dest...) }

// sliceRows serves int64 values one per row
type sliceRows struct {
	vals   []int64
	idx    int
	err    error
	closed bool
}

func (r *sliceRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	return r.idx <= len(r.vals)
}

func (r *sliceRows) Scan(dest ...any) error {
	p, ok := dest[0].(*int64)
	if !ok {
		return errors.New("want *int64")
	}
	*p = r.vals[r.idx-1]
	return nil
}
func (r *sliceRows) Err() error        { return r.err }
func (r *sliceRows) Close()            { r.closed = true }
func (r *sliceRows) Columns() []string { return []string{"id"} }

func scanID(r Row) (int64, error) {
	var id int64
	err := r.Scan(&id)
	return id, err
}

func TestExecAffected(t *testing.T) {
	ctx := context.Background()

	q := &fakeRowQuerier{execTag: fakeTag(3)}
	n, err := ExecAffected(ctx, q, "UPDATE incidents SET status = 'ended' WHERE status = 'active'")
	if err != nil || n != 3 {
		t.Fatalf("ExecAffected = %d, %v", n, err)
	}
	if q.lastSQL == "" {
		t.Fatalf("statement not sent")
	}

	q = &fakeRowQuerier{execErr: errors.New("down")}
	if _, err := ExecAffected(ctx, q, "DELETE FROM detections"); err == nil {
		t.Fatalf("ExecAffected should propagate errors")
	}
}

func TestScalar(t *testing.T) {
	q := &fakeRowQuerier{row: scanFunc(func(dest ...any) error {
		*(dest[0].(*int64)) = 42
		return nil
	})}
	n, err := Scalar[int64](context.Background(), q, "SELECT count(*) FROM detections")
	if err != nil || n != 42 {
		t.Fatalf("Scalar = %d, %v", n, err)
	}

	q.row = scanFunc(func(...any) error { return errors.New("no rows") })
	if _, err := Scalar[int64](context.Background(), q, "SELECT 1"); err == nil {
		t.Fatalf("Scalar should propagate scan error")
	}
}

func TestManyAndColumn(t *testing.T) {
	ctx := context.Background()
	rs := &sliceRows{vals: []int64{3, 1, 2}}
	got, err := Many(ctx, &fakeRowQuerier{rows: rs}, scanID, "SELECT id")
	if err != nil || !reflect.DeepEqual(got, []int64{3, 1, 2}) {
		t.Fatalf("Many = %v, %v", got, err)
	}
	if !rs.closed {
		t.Fatalf("rows not closed")
	}

	ids, err := Column[int64](ctx, &fakeRowQuerier{rows: &sliceRows{vals: []int64{9}}}, "UPDATE ... RETURNING id")
	if err != nil || !reflect.DeepEqual(ids, []int64{9}) {
		t.Fatalf("Column = %v, %v", ids, err)
	}

	empty, err := Column[int64](ctx, &fakeRowQuerier{rows: &sliceRows{}}, "SELECT id")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty Column = %v, %v", empty, err)
	}

	_, err = Many(ctx, &fakeRowQuerier{rows: &sliceRows{err: errors.New("iter")}}, scanID, "SELECT id")
	if err == nil {
		t.Fatalf("iterator error should propagate")
	}
}
