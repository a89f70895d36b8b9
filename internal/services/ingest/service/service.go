// Package service provides the fire ingestor
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firewatch/internal/core/fire"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
	"firewatch/internal/platform/store"
	fetchdom "firewatch/internal/services/fetch/domain"
	"firewatch/internal/services/ingest/domain"
)

const defaultChunk = 1000

// Config holds ingest tuning
type Config struct {
	// Chunk is the rows per upsert statement; <=0 -> 1000
	Chunk int
}

// Service implements the fire ingestor
type Service struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.Repo]
	Cfg     Config
	Metrics *metrics.Metrics
}

// New constructs the ingest service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Repo], cfg Config, m *metrics.Metrics) *Service {
	if db == nil {
		panic("ingest.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("ingest.Service requires a non nil Repo binder")
	}
	if cfg.Chunk <= 0 {
		cfg.Chunk = defaultChunk
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg, Metrics: m}
}

// Ingest normalizes and upserts every table in the batch. Each source is
// written in its own transaction so a storage failure loses only that
// source; the run fails only when every source with rows failed to persist
func (s *Service) Ingest(ctx context.Context, batch fetchdom.Batch) (domain.Report, error) {
	log := logger.C(ctx)
	start := time.Now()

	var (
		rep       domain.Report
		errs      []error
		attempted int
	)
	for _, tbl := range batch.Tables {
		ds, st := Normalize(tbl.Source, tbl.Table)
		sr := domain.SourceReport{Source: tbl.Source, Stats: st}

		if len(ds) > 0 {
			attempted++
			n, err := s.upsert(ctx, ds)
			if err != nil {
				sr.Err = err.Error()
				errs = append(errs, fmt.Errorf("%s: %w", tbl.Source, err))
				log.Warn().Err(err).Str("source", tbl.Source).Int("rows", len(ds)).Msg("ingest source failed")
			} else {
				sr.Inserted = n
			}
		}
		if st.Malformed > 0 {
			log.Warn().Str("source", tbl.Source).Int("malformed", st.Malformed).Msg("malformed rows dropped")
		}

		rep.PerSource = append(rep.PerSource, sr)
		rep.Inserted += sr.Inserted
		rep.Malformed += st.Malformed
		rep.Duplicates += st.Duplicates
		s.Metrics.Ingested(tbl.Source, sr.Inserted, st.Malformed)
	}

	log.Info().
		Int("sources", len(batch.Tables)).
		Int("inserted", rep.Inserted).
		Int("malformed", rep.Malformed).
		Int("duplicates", rep.Duplicates).
		Int("failed", len(errs)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("ingest finished")

	if attempted > 0 && len(errs) == attempted {
		return rep, errors.Join(errs...)
	}
	return rep, nil
}

// upsert writes one source's detections in chunks inside a single transaction
func (s *Service) upsert(ctx context.Context, ds []fire.Detection) (int, error) {
	inserted := 0
	err := store.RunTx(ctx, s.DB, "ingest.upsert", func(ctx context.Context, q store.RowQuerier) error {
		repo := repokit.MustBind(s.Binder, q)
		n := 0
		for lo := 0; lo < len(ds); lo += s.Cfg.Chunk {
			hi := min(lo+s.Cfg.Chunk, len(ds))
			got, err := repo.UpsertDetections(ctx, ds[lo:hi])
			if err != nil {
				return err
			}
			n += got
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
