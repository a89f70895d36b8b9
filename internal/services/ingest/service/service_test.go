package service

import (
	"context"
	"testing"

	"firewatch/internal/adapters/memstore"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/testkit"
	fetchdom "firewatch/internal/services/fetch/domain"
)

func batchOf(tables ...fetchdom.SourceTable) fetchdom.Batch {
	return fetchdom.Batch{Tables: tables}
}

func snpp() fetchdom.SourceTable {
	return fetchdom.SourceTable{Source: "VIIRS_SNPP_NRT", Table: fetchdom.RawTable{Header: viirsHeader, Rows: [][]string{
		viirsRow("-12.3400", "130.1200", "2025-08-01", "0342", "n", "5.4"),
		viirsRow("-12.3418", "130.1200", "2025-08-01", "0342", "h", "7.9"),
		viirsRow("bad", "130.1200", "2025-08-01", "0342", "h", "7.9"),
	}}}
}

func noaa() fetchdom.SourceTable {
	return fetchdom.SourceTable{Source: "VIIRS_NOAA20_NRT", Table: fetchdom.RawTable{Header: viirsHeader, Rows: [][]string{
		viirsRow("-12.3400", "130.1200", "2025-08-01", "0431", "n", "4.0"),
	}}}
}

func TestIngest_InsertsAndCounts(t *testing.T) {
	t.Parallel()

	s := memstore.New()
	svc := New(s, memstore.Ingest(), Config{Chunk: 1}, nil)

	rep, err := svc.Ingest(context.Background(), batchOf(snpp(), noaa()))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if rep.Inserted != 3 || rep.Malformed != 1 || len(rep.PerSource) != 2 || rep.Failed() != 0 {
		t.Fatalf("report=%+v", rep)
	}
	if rep.PerSource[0].Inserted != 2 || rep.PerSource[1].Inserted != 1 {
		t.Fatalf("per source=%+v", rep.PerSource)
	}
}

func TestIngest_SecondPassInsertsNothing(t *testing.T) {
	t.Parallel()

	s := memstore.New()
	svc := New(s, memstore.Ingest(), Config{}, nil)
	if _, err := svc.Ingest(context.Background(), batchOf(snpp())); err != nil {
		t.Fatalf("first: %v", err)
	}
	rep, err := svc.Ingest(context.Background(), batchOf(snpp()))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if rep.Inserted != 0 {
		t.Fatalf("re-ingest inserted %d", rep.Inserted)
	}
	ds, _ := s.Snapshot()
	if len(ds) != 2 {
		t.Fatalf("stored=%d", len(ds))
	}
}

func TestIngest_OneSourceFailsInIsolation(t *testing.T) {
	t.Parallel()

	s := memstore.New()
	calls := 0
	s.FailOn(memstore.OpUpsert, func() error {
		calls++
		if calls == 2 {
			return perr.Unavailablef("connection lost")
		}
		return nil
	})
	svc := New(s, memstore.Ingest(), Config{Chunk: 1}, nil)

	rep, err := svc.Ingest(context.Background(), batchOf(snpp(), noaa()))
	if err != nil {
		t.Fatalf("partial failure must not fail the run: %v", err)
	}
	if rep.Failed() != 1 || rep.PerSource[0].Err == "" || rep.PerSource[1].Inserted != 1 {
		t.Fatalf("report=%+v", rep)
	}
	ds, _ := s.Snapshot()
	if len(ds) != 1 || ds[0].Source != "VIIRS_NOAA20_NRT" {
		t.Fatalf("failed source must roll back whole: %+v", ds)
	}
}

func TestIngest_AllSourcesFail(t *testing.T) {
	t.Parallel()

	s := memstore.New()
	s.FailOn(memstore.OpUpsert, func() error { return perr.Unavailablef("down") })
	svc := New(s, memstore.Ingest(), Config{}, nil)

	rep, err := svc.Ingest(context.Background(), batchOf(snpp(), noaa()))
	if err == nil || !perr.Retryable(err) {
		t.Fatalf("want retryable error, got %v", err)
	}
	if rep.Inserted != 0 || rep.Failed() != 2 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestIngest_EmptyBatch(t *testing.T) {
	t.Parallel()

	svc := New(memstore.New(), memstore.Ingest(), Config{}, nil)
	rep, err := svc.Ingest(context.Background(), fetchdom.Batch{})
	if err != nil || rep.Inserted != 0 {
		t.Fatalf("rep=%+v err=%v", rep, err)
	}
}

func TestNew_PanicsOnNilDeps(t *testing.T) {
	t.Parallel()

	testkit.MustPanic(t, func() { New(nil, memstore.Ingest(), Config{}, nil) })
	testkit.MustPanic(t, func() { New(memstore.New(), nil, Config{}, nil) })
}
