package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"firewatch/internal/modkit"
	"firewatch/internal/modkit/module"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/config"
	"firewatch/internal/platform/jobs"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
	phttp "firewatch/internal/platform/net/http"
	"firewatch/internal/platform/net/middleware"
	"firewatch/internal/platform/store"
	"firewatch/internal/services/pipeline"
)

func main() {
	root := config.New()
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.ConfigFromEnv(root, "worker"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if st.PG == nil {
		l.Panic().Msg("firewatch-worker needs Postgres (SERVICE_PGSQL_ENABLED)")
	}
	repokit.MustReady(ctx, "store", st)

	jobOpts := pipeline.FromConfig(root)
	config.MustValidate(jobOpts)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	clk := clockwork.NewRealClock()

	deps := modkit.Deps{
		Log:     *l,
		Cfg:     root,
		PG:      st.PG,
		CH:      st.CH,
		Metrics: m,
		Clock:   clk,
		Lease:   jobs.NewPGLease(st.PG, jobOpts.LeaseTTL, m),
	}

	w, err := pipeline.Wire(deps, pipeline.PGBackend(st.PG))
	if err != nil {
		l.Panic().Err(err).Msg("pipeline wiring failed")
	}
	defer func() {
		if err := w.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close notifier")
		}
	}()
	if w.Archiver != nil {
		if err := w.Archiver.Ensure(ctx); err != nil {
			l.Panic().Err(err).Msg("incident archive table")
		}
	}

	runner := jobs.NewRunner(jobs.NewPGLedger(st.PG), m, clk, jobs.RunnerOptions{
		MaxAttempts: jobOpts.MaxAttempts,
		RetryBase:   jobOpts.RetryBase,
	})
	sched := jobs.NewScheduler(logger.Named("cron"))
	if err := pipeline.Schedule(sched, runner, w.Cycle, jobOpts); err != nil {
		l.Panic().Err(err).Msg("bad job schedule")
	}

	opsOpts := phttp.FromConfig(root)
	config.MustValidate(opsOpts)
	srv := phttp.NewServer(opsOpts.Addr, func(r *chi.Mux) {
		r.Use(middleware.Defaults()...)
		phttp.MountOps(r, phttp.Ops{Ready: st, Gatherer: reg, Pprof: opsOpts.Pprof})
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		sched.Start(gctx)
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sched.Stop(sctx)
	})

	l.Info().
		Str("fetch", jobOpts.FetchSchedule).
		Str("sweep", jobOpts.SweepSchedule).
		Str("ops", opsOpts.Addr).
		Strs("modules", module.Names()).
		Msg("firewatch worker started")

	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("worker stopped with error")
		return
	}
	l.Info().Msg("firewatch worker stopped")
}
