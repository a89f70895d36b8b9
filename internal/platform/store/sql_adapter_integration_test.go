//go:build integration_pg

package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/testkit"
)

func openTestPG(t *testing.T, pgc PGConfig) *pgAdapter {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pgc.URL = testkit.StartPostgres(t)
	pgc.Enabled = true
	txr, err := openPG(ctx, Config{AppName: "firewatch-test", PG: pgc}, &Store{Log: zerolog.New(io.Discard)})
	if err != nil {
		t.Fatalf("openPG: %v", err)
	}
	a := txr.(*pgAdapter)
	t.Cleanup(func() { _ = a.Close() })

	if _, err := a.Exec(ctx, `
		CREATE TABLE fires (
			id         BIGSERIAL PRIMARY KEY,
			source_key TEXT NOT NULL UNIQUE,
			frp        DOUBLE PRECISION NOT NULL
		)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return a
}

func TestPGAdapter_Integration_QueryHelpers(t *testing.T) {
	a := openTestPG(t, PGConfig{MaxConns: 2, LogSQL: true})
	ctx := context.Background()

	n, err := ExecAffected(ctx, a, `INSERT INTO fires (source_key, frp) VALUES ($1, $2), ($3, $4)`,
		"viirs:a", 12.5, "viirs:b", 3.0)
	if err != nil || n != 2 {
		t.Fatalf("insert = %d, %v", n, err)
	}

	count, err := Scalar[int64](ctx, a, `SELECT count(*) FROM fires`)
	if err != nil || count != 2 {
		t.Fatalf("count = %d, %v", count, err)
	}

	keys, err := Column[string](ctx, a, `SELECT source_key FROM fires ORDER BY frp DESC`)
	if err != nil || len(keys) != 2 || keys[0] != "viirs:a" {
		t.Fatalf("keys = %v, %v", keys, err)
	}

	rs, err := a.Query(ctx, `SELECT id, frp FROM fires`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	cols := rs.Columns()
	rs.Close()
	if len(cols) != 2 || cols[1] != "frp" {
		t.Fatalf("columns = %v", cols)
	}

	var name string
	if err := a.QueryRow(ctx, `SELECT current_setting('application_name')`).Scan(&name); err != nil || name != "firewatch-test" {
		t.Fatalf("application_name = %q, %v", name, err)
	}
}

func TestPGAdapter_Integration_TxRollsBack(t *testing.T) {
	a := openTestPG(t, PGConfig{MaxConns: 2, StatementTimeout: 2 * time.Second})
	ctx := context.Background()

	if err := a.Tx(ctx, func(q RowQuerier) error {
		_, err := q.Exec(ctx, `INSERT INTO fires (source_key, frp) VALUES ('modis:kept', 1)`)
		return err
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("abort")
	if err := a.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `INSERT INTO fires (source_key, frp) VALUES ('modis:lost', 1)`); err != nil {
			return err
		}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("want fn error back, got %v", err)
	}

	testkit.MustPanic(t, func() {
		_ = a.Tx(ctx, func(q RowQuerier) error {
			_, _ = q.Exec(ctx, `INSERT INTO fires (source_key, frp) VALUES ('modis:panic', 1)`)
			panic("mid-tx")
		})
	})

	keys, err := Column[string](ctx, a, `SELECT source_key FROM fires`)
	if err != nil || len(keys) != 1 || keys[0] != "modis:kept" {
		t.Fatalf("rows after rollback = %v, %v", keys, err)
	}
}

func TestPGAdapter_Integration_StatementTimeout(t *testing.T) {
	a := openTestPG(t, PGConfig{MaxConns: 2, StatementTimeout: 100 * time.Millisecond})
	ctx := context.Background()

	err := RunTx(ctx, a, "test.sleep", func(ctx context.Context, q RowQuerier) error {
		_, err := q.Exec(ctx, `SELECT pg_sleep(1)`)
		return err
	})
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("statement timeout should map to db, got %v (%v)", err, perr.CodeOf(err))
	}
}
