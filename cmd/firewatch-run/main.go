package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"firewatch/internal/adapters/memstore"
	"firewatch/internal/core/fire"
	"firewatch/internal/modkit"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/config"
	"firewatch/internal/platform/jobs"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/store"
	"firewatch/internal/services/pipeline"
	"firewatch/migrations"
)

// parseNear reads "name:lat,lon,radius_m"
func parseNear(v string) (fire.Location, error) {
	name, rest, ok := strings.Cut(v, ":")
	parts := strings.Split(rest, ",")
	if !ok || name == "" || len(parts) != 3 {
		return fire.Location{}, fmt.Errorf("want name:lat,lon,radius_m, got %q", v)
	}
	var nums [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fire.Location{}, fmt.Errorf("bad number %q: %w", p, err)
		}
		nums[i] = f
	}
	return fire.Location{
		ID:        uuid.New(),
		UserID:    uuid.Nil,
		Name:      name,
		Latitude:  nums[0],
		Longitude: nums[1],
		RadiusM:   nums[2],
	}, nil
}

func main() {
	var (
		fMode    = flag.String("mode", "cycle", "what to run once: fetch | cluster | sweep | purge | cycle")
		fStore   = flag.String("store", "pg", "storage backend: pg | memory")
		fMigrate = flag.Bool("migrate", false, "apply the reference schema before running (pg only)")
		fNear    = flag.String("near", "", "memory store only: seed one location as name:lat,lon,radius_m")
	)
	flag.Parse()

	root := config.New()
	l := logger.Get()
	ctx := context.Background()

	deps := modkit.Deps{Log: *l, Cfg: root}
	var b pipeline.Backend

	switch *fStore {
	case "pg":
		st, err := store.Open(ctx, store.ConfigFromEnv(root, "run"), store.WithLogger(*l))
		if err != nil {
			l.Panic().Err(err).Msg("store.Open failed")
		}
		defer func() {
			if err := st.Close(context.Background()); err != nil {
				l.Error().Err(err).Msg("failed to close store")
			}
		}()
		if st.PG == nil {
			l.Panic().Msg("-store=pg needs SERVICE_PGSQL_ENABLED")
		}
		repokit.MustReady(ctx, "store", st)
		if *fMigrate {
			if err := migrations.Apply(ctx, st.PG); err != nil {
				l.Panic().Err(err).Msg("migrations failed")
			}
		}
		deps.PG, deps.CH = st.PG, st.CH
		deps.Lease = jobs.NewPGLease(st.PG, 0, nil)
		b = pipeline.PGBackend(st.PG)

	case "memory":
		ms := memstore.New()
		if *fNear != "" {
			loc, err := parseNear(*fNear)
			if err != nil {
				l.Panic().Err(err).Msg("bad -near")
			}
			ms.AddLocation(loc)
		}
		deps.PG = ms
		b = pipeline.Backend{
			Ingest:     memstore.Ingest(),
			Clustering: memstore.Clustering(),
			Lifecycle:  memstore.Lifecycle(),
			Incidents:  memstore.IncidentReader(),
			Locations:  ms.Locations(),
		}

	default:
		l.Panic().Str("store", *fStore).Msg("unknown -store (expected: pg | memory)")
	}

	w, err := pipeline.Wire(deps, b)
	if err != nil {
		l.Panic().Err(err).Msg("pipeline wiring failed")
	}
	defer func() { _ = w.Close() }()
	if w.Archiver != nil {
		if err := w.Archiver.Ensure(ctx); err != nil {
			l.Panic().Err(err).Msg("incident archive table")
		}
	}

	var run func(context.Context) (pipeline.CycleReport, error)
	switch *fMode {
	case "fetch":
		run = w.Cycle.Ingest
	case "cluster":
		run = w.Cycle.Cluster
	case "sweep":
		run = w.Cycle.Sweep
	case "purge":
		run = w.Cycle.Purge
	case "cycle":
		run = w.Cycle.Run
	default:
		l.Panic().Str("mode", *fMode).Msg("unknown -mode (expected: fetch | cluster | sweep | purge | cycle)")
	}

	rep, err := run(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rep)
	if err != nil {
		l.Error().Err(err).Str("mode", *fMode).Msg("run failed")
		os.Exit(1)
	}
}
