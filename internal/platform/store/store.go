// Package store opens the Postgres and ClickHouse backends and exposes the
// narrow query seams repositories bind to
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
)

// Store holds whichever backends are enabled; disabled ones stay nil
type Store struct {
	Log logger.Logger

	// PG holds detections, incidents and the run ledger
	PG TxRunner

	// CH receives the incident archive
	CH Clickhouse
}

type (
	// Row is a single scannable result
	Row interface {
		Scan(dest ...any) error
	}

	// Rows iterates a result set; it is also a Row for the current position
	Rows interface {
		Row
		Next() bool
		Err() error
		Close()
		Columns() []string
	}

	// CommandTag reports what a write did
	CommandTag interface {
		String() string
		RowsAffected() int64
	}

	// RowQuerier is the SQL surface repositories are bound to
	RowQuerier interface {
		Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
		Query(ctx context.Context, sql string, args ...any) (Rows, error)
		QueryRow(ctx context.Context, sql string, args ...any) Row
	}

	// TxRunner is a RowQuerier that can also open transactions
	TxRunner interface {
		RowQuerier
		Tx(ctx context.Context, fn func(q RowQuerier) error) error
	}

	// Clickhouse is the columnar archive seam
	Clickhouse interface {
		Insert(ctx context.Context, table string, rows [][]any) error
		Query(ctx context.Context, sql string, args ...any) (Rows, error)
		Exec(ctx context.Context, sql string, args ...any) error
		Ping(ctx context.Context) error
		Close() error
	}

	// Pinger reports readiness
	Pinger interface{ Ping(context.Context) error }
)

// Open connects every backend cfg enables. A failure closes whatever was already opened.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	if cfg.PG.Enabled {
		p, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "store: open postgres")
		}
		s.PG = p
	}
	if cfg.CH.Enabled {
		c, err := openCH(ctx, cfg, s)
		if err != nil {
			_ = s.Close(ctx)
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "store: open clickhouse")
		}
		s.CH = c
	}
	return s, nil
}

type seam struct {
	name string
	p    Pinger
}

func (s *Store) seams() []seam {
	var out []seam
	if p, ok := s.PG.(Pinger); ok {
		out = append(out, seam{"pg", p})
	}
	if s.CH != nil {
		out = append(out, seam{"ch", s.CH})
	}
	return out
}

// Guard pings every open backend and joins the failures, each prefixed with its name
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return perr.New(perr.ErrorCodeUnavailable, "store: not opened")
	}
	var errs []error
	for _, sm := range s.seams() {
		if err := sm.p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sm.name, err))
		}
	}
	return errors.Join(errs...)
}

// Ping makes the Store itself a Pinger for readiness probes
func (s *Store) Ping(ctx context.Context) error { return s.Guard(ctx) }

// Close shuts ClickHouse then Postgres
func (s *Store) Close(_ context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
