package jobs

import (
	"context"
	"strings"
	"sync"

	"firewatch/internal/platform/store"
)

type fakeTag int64

func (t fakeTag) String() string      { return "OK" }
func (t fakeTag) RowsAffected() int64 { return int64(t) }

type fakeRows struct{ n int }

func (r *fakeRows) Next() bool {
	if r.n == 0 {
		return false
	}
	r.n--
	return true
}
func (r *fakeRows) Scan(...any) error { return nil }
func (r *fakeRows) Err() error        { return nil }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return nil }

// fakeDB records statements and answers the lease claim with claimRows rows
type fakeDB struct {
	mu        sync.Mutex
	claimRows int
	claimErr  error
	execErr   error
	execs     []string
	args      [][]any
}

func (f *fakeDB) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error { return fn(f) }

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, strings.TrimSpace(sql))
	f.args = append(f.args, args)
	return fakeTag(1), f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (store.Rows, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return &fakeRows{n: f.claimRows}, nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) store.Row { return nil }

func (f *fakeDB) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.execs...)
}
