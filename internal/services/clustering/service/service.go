// Package service provides the clustering engine: greedy nearest-incident
// assignment of unassigned detections with incremental aggregates
package service

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"firewatch/internal/core/fire"
	"firewatch/internal/core/geo"
	"firewatch/internal/modkit/repokit"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
	"firewatch/internal/platform/store"
	"firewatch/internal/services/clustering/domain"
)

const (
	defaultDistanceM = 5000
	defaultBatch     = 5000
)

var errAssigned = perr.New(perr.ErrorCodeConflict, "detection already assigned")

// Config holds clustering parameters
type Config struct {
	// DistanceM is how far outside an incident bound a detection may lie and still join it; <=0 -> 5000
	DistanceM float64
	// Batch is the page size of the unassigned scan; <=0 -> 5000
	Batch int
}

// Engine implements the clustering pass. It must run single-flight; a
// rerun is safe because assigned detections are never selected again
type Engine struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.Repo]
	Cfg     Config
	Metrics *metrics.Metrics
}

// New constructs the engine
func New(db repokit.TxRunner, binder repokit.Binder[domain.Repo], cfg Config, m *metrics.Metrics) *Engine {
	if db == nil {
		panic("clustering.Engine requires a non nil TxRunner")
	}
	if binder == nil {
		panic("clustering.Engine requires a non nil Repo binder")
	}
	if cfg.DistanceM <= 0 {
		cfg.DistanceM = defaultDistanceM
	}
	if cfg.Batch <= 0 {
		cfg.Batch = defaultBatch
	}
	return &Engine{DB: db, Binder: binder, Cfg: cfg, Metrics: m}
}

// Run assigns every unassigned detection, oldest first. Errors confined to
// one detection are collected in the report; storage failures end the run
func (e *Engine) Run(ctx context.Context) (domain.Report, error) {
	log := logger.C(ctx)
	start := time.Now()

	var (
		rep     domain.Report
		cursor  domain.Cursor
		touched = map[int64]struct{}{}
	)
	reader := repokit.MustBind(e.Binder, e.DB)

	for {
		page, err := reader.Unassigned(ctx, cursor, e.Cfg.Batch)
		if err != nil {
			return rep, perr.FromPostgres(err, "load unassigned detections")
		}
		for _, d := range page {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			cursor = domain.Of(d)

			td, err := e.assign(ctx, d)
			switch {
			case errors.Is(err, errAssigned):
				rep.Skipped++
				continue
			case err != nil && fatal(err):
				e.Metrics.ClusterFailed()
				return rep, err
			case err != nil:
				e.Metrics.ClusterFailed()
				rep.Errors = append(rep.Errors, domain.ItemError{DetectionID: d.ID, Err: err.Error()})
				log.Warn().Err(err).Int64("detection_id", d.ID).Msg("detection not clustered")
				continue
			}

			rep.Processed++
			rep.Tagged = append(rep.Tagged, td)
			if td.Tag == fire.TagNewIncident {
				rep.NewIncidents++
			}
			if _, ok := touched[td.IncidentID]; !ok {
				touched[td.IncidentID] = struct{}{}
				rep.Touched = append(rep.Touched, td.IncidentID)
			}
			e.Metrics.Clustered(string(td.Tag))
		}
		if len(page) < e.Cfg.Batch {
			break
		}
	}

	log.Info().
		Int("processed", rep.Processed).
		Int("new_incidents", rep.NewIncidents).
		Int("touched", len(rep.Touched)).
		Int("skipped", rep.Skipped).
		Int("errors", len(rep.Errors)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("clustering finished")
	return rep, nil
}

// assign places one detection in its own transaction
func (e *Engine) assign(ctx context.Context, d fire.Detection) (fire.TaggedDetection, error) {
	var out fire.TaggedDetection
	err := store.RunTx(ctx, e.DB, "cluster.assign", func(ctx context.Context, q store.RowQuerier) error {
		repo := repokit.MustBind(e.Binder, q)
		p := d.Point()

		cands, err := repo.Candidates(ctx, geo.SearchBox(p, e.Cfg.DistanceM))
		if err != nil {
			return err
		}

		best, ok := Nearest(cands, p, e.Cfg.DistanceM)
		if !ok {
			id, err := repo.CreateIncident(ctx, fire.NewIncident(d))
			if err != nil {
				return err
			}
			if err := attach(ctx, repo, d.ID, id); err != nil {
				return err
			}
			out = tagged(d, id, fire.TagNewIncident)
			return nil
		}

		next, err := best.Absorb(d)
		if err != nil {
			return err
		}
		if err := attach(ctx, repo, d.ID, best.ID); err != nil {
			return err
		}
		if err := repo.SaveIncident(ctx, next); err != nil {
			return err
		}
		out = tagged(d, best.ID, fire.TagExistingIncident)
		return nil
	})
	return out, err
}

func attach(ctx context.Context, repo domain.Repo, detectionID, incidentID int64) error {
	ok, err := repo.Attach(ctx, detectionID, incidentID)
	if err != nil {
		return err
	}
	if !ok {
		return errAssigned
	}
	return nil
}

func tagged(d fire.Detection, incidentID int64, tag fire.Tag) fire.TaggedDetection {
	id := incidentID
	d.IncidentID = &id
	return fire.TaggedDetection{Detection: d, IncidentID: incidentID, Tag: tag}
}

// Nearest picks the candidate whose expanded bound contains p and whose
// center is closest to p. Equal distances go to the lowest incident id
func Nearest(cands []fire.Incident, p orb.Point, distanceM float64) (fire.Incident, bool) {
	var (
		best  fire.Incident
		bestD float64
		found bool
	)
	for _, c := range cands {
		if c.Ended() || !geo.WithinExpanded(c.Bound(), p, distanceM) {
			continue
		}
		dist := geo.Distance(c.Center(), p)
		if !found || dist < bestD || (dist == bestD && c.ID < best.ID) {
			best, bestD, found = c, dist, true
		}
	}
	return best, found
}

// fatal separates run-level storage trouble from problems with a single row
func fatal(err error) bool {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeConflict, perr.ErrorCodeValidation, perr.ErrorCodeInvalidArgument,
		perr.ErrorCodeDuplicateKey, perr.ErrorCodeNotFound:
		return false
	}
	return true
}
