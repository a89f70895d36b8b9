package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	perr "firewatch/internal/platform/errors"
)

// quietTx is a TxRunner without a Ping method
type quietTx struct{ fakeRowQuerier }

func (q *quietTx) Tx(_ context.Context, fn func(RowQuerier) error) error { return fn(&q.fakeRowQuerier) }

// pingTx is a TxRunner that reports err from Ping and counts closes
type pingTx struct {
	quietTx
	err    error
	closed int
}

func (p *pingTx) Ping(context.Context) error { return p.err }
func (p *pingTx) Close() error               { p.closed++; return nil }

func TestGuard(t *testing.T) {
	down := errors.New("down")
	cases := []struct {
		name   string
		st     *Store
		prefix []string
	}{
		{"nil store", nil, []string{"store: not opened"}},
		{"no backends", &Store{}, nil},
		{"pg without ping", &Store{PG: &quietTx{}}, nil},
		{"pg up", &Store{PG: &pingTx{}}, nil},
		{"pg down", &Store{PG: &pingTx{err: down}}, []string{"pg: down"}},
		{"ch down", &Store{PG: &pingTx{}, CH: newCHAdapter(&fakeCH{pingErr: down})}, []string{"ch: down"}},
		{"both down", &Store{PG: &pingTx{err: down}, CH: newCHAdapter(&fakeCH{pingErr: down})}, []string{"pg: down", "ch: down"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.st.Guard(context.Background())
			if len(c.prefix) == 0 {
				if err != nil {
					t.Fatalf("Guard = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Guard = nil, want %v", c.prefix)
			}
			for _, p := range c.prefix {
				if !strings.Contains(err.Error(), p) {
					t.Fatalf("Guard = %q, missing %q", err, p)
				}
			}
		})
	}
}

func TestGuard_NilStoreIsUnavailable(t *testing.T) {
	var s *Store
	if err := s.Ping(context.Background()); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
}

func TestClose_ClosesBothBackends(t *testing.T) {
	pt := &pingTx{}
	fc := &fakeCH{}
	s := &Store{PG: pt, CH: newCHAdapter(fc)}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if pt.closed != 1 || !fc.closed {
		t.Fatalf("closed pg=%d ch=%v", pt.closed, fc.closed)
	}
}
