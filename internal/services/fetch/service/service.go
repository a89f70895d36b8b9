// Package service provides the satellite fetch coordinator
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
	"firewatch/internal/services/fetch/domain"
)

// Config holds the coordinator timeouts
type Config struct {
	// SourceTimeout bounds each source call; <=0 -> 60s
	SourceTimeout time.Duration

	// JoinGrace is added to SourceTimeout to bound the whole join; <0 -> 0
	JoinGrace time.Duration
}

// Coordinator fans a fetch out to every source and joins with a bound
type Coordinator struct {
	Sources []domain.Source
	Cfg     Config
	Metrics *metrics.Metrics
}

// New constructs the coordinator; at least one source is required
func New(sources []domain.Source, cfg Config, m *metrics.Metrics) *Coordinator {
	if len(sources) == 0 {
		panic("fetch.Coordinator requires at least one source")
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 60 * time.Second
	}
	if cfg.JoinGrace < 0 {
		cfg.JoinGrace = 0
	}
	return &Coordinator{Sources: sources, Cfg: cfg, Metrics: m}
}

type outcome struct {
	idx     int
	table   domain.RawTable
	err     error
	elapsed time.Duration
}

// Fetch queries every source concurrently for the last days of detections.
// Empty tables count as success. The batch is returned alongside
// ErrAllSourcesFailed when nothing succeeded so the caller can still log stats
func (c *Coordinator) Fetch(ctx context.Context, days int) (domain.Batch, error) {
	if days < 1 || days > domain.MaxLookbackDays {
		return domain.Batch{}, perr.InvalidArgf("lookback days must be 1..%d, got %d", domain.MaxLookbackDays, days)
	}
	log := logger.C(ctx)
	start := time.Now()

	joinCtx, cancel := context.WithTimeout(ctx, c.Cfg.SourceTimeout+c.Cfg.JoinGrace)
	defer cancel()

	// buffered so late sources never block after the join gave up on them
	results := make(chan outcome, len(c.Sources))
	g := new(errgroup.Group)
	g.SetLimit(len(c.Sources))
	for i, src := range c.Sources {
		g.Go(func() error {
			sctx, scancel := context.WithTimeout(joinCtx, c.Cfg.SourceTimeout)
			defer scancel()
			t0 := time.Now()
			tbl, err := src.Fetch(sctx, days)
			if err == nil && sctx.Err() != nil {
				err = sctx.Err()
			}
			results <- outcome{idx: i, table: tbl, err: err, elapsed: time.Since(t0)}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	got := make([]*outcome, len(c.Sources))
collect:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break collect
			}
			got[r.idx] = &r
		case <-joinCtx.Done():
			break collect
		}
	}
	// keep anything that landed in the buffer as the deadline fired
drain:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break drain
			}
			got[r.idx] = &r
		default:
			break drain
		}
	}

	var (
		batch domain.Batch
		errs  []error
	)
	for i, src := range c.Sources {
		id := src.ID()
		st := domain.SourceStat{Source: id}
		r := got[i]
		switch {
		case r == nil:
			st.Err = "no response before join deadline"
			st.ElapsedMS = time.Since(start).Milliseconds()
			errs = append(errs, fmt.Errorf("%s: %w", id, context.DeadlineExceeded))
		case r.err != nil:
			st.Err = r.err.Error()
			st.ElapsedMS = r.elapsed.Milliseconds()
			errs = append(errs, fmt.Errorf("%s: %w", id, r.err))
		default:
			st.OK = true
			st.Rows = r.table.Len()
			st.ElapsedMS = r.elapsed.Milliseconds()
			batch.Tables = append(batch.Tables, domain.SourceTable{Source: id, Table: r.table})
		}
		batch.Stats = append(batch.Stats, st)
		c.Metrics.SourceFetched(id, st.OK, st.Rows, time.Duration(st.ElapsedMS)*time.Millisecond)
		if !st.OK {
			log.Warn().Str("source", id).Str("error", st.Err).Int64("elapsed_ms", st.ElapsedMS).Msg("source fetch failed")
		}
	}

	if err := ctx.Err(); err != nil {
		return batch, err
	}
	if len(batch.Tables) == 0 {
		return batch, fmt.Errorf("%w: %w", domain.ErrAllSourcesFailed, errors.Join(errs...))
	}

	log.Info().
		Int("sources", len(c.Sources)).
		Int("failed", batch.Failed()).
		Int("rows", batch.Rows()).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("fetch finished")
	return batch, nil
}
