// Package pipeline chains the stages of one detection cycle and runs the
// shared stages under single-flight leases
package pipeline

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"firewatch/internal/platform/jobs"
	"firewatch/internal/platform/logger"
	clusterdom "firewatch/internal/services/clustering/domain"
	fetchdom "firewatch/internal/services/fetch/domain"
	ingestdom "firewatch/internal/services/ingest/domain"
	lifedom "firewatch/internal/services/lifecycle/domain"
	notifydom "firewatch/internal/services/notify/domain"
)

// Stages are the ports a cycle drives
type Stages struct {
	Fetcher   fetchdom.FetcherPort
	Ingester  ingestdom.IngesterPort
	Engine    clusterdom.EnginePort
	Notify    notifydom.OrchestratorPort
	Lifecycle lifedom.ManagerPort
}

// CycleReport is the ledger stats of one cycle. Stages that did not run are nil
type CycleReport struct {
	Fetch   []fetchdom.SourceStat `json:"fetch"`
	Ingest  *ingestdom.Report     `json:"ingest,omitempty"`
	Cluster *clusterdom.Report    `json:"cluster,omitempty"`
	Notify  *notifydom.Report     `json:"notify,omitempty"`
	Sweep   *lifedom.SweepReport  `json:"sweep,omitempty"`
	Purge   *lifedom.PurgeReport  `json:"purge,omitempty"`
	Skipped []string              `json:"skipped,omitempty"`
}

// Cycle runs the pipeline. Cluster, notify and lifecycle passes each hold
// their lease so concurrent workers never overlap on shared aggregates
type Cycle struct {
	Stages
	Lease        jobs.Lease
	Clock        clockwork.Clock // paces the notify lease wait; nil is real time
	LookbackDays int
}

// New builds a cycle; a nil lease is in-process only
func New(st Stages, lease jobs.Lease, lookbackDays int) *Cycle {
	if st.Fetcher == nil || st.Ingester == nil || st.Engine == nil || st.Notify == nil || st.Lifecycle == nil {
		panic("pipeline.Cycle requires every stage")
	}
	if lease == nil {
		lease = jobs.NewLocalLease(nil)
	}
	return &Cycle{Stages: st, Lease: lease, LookbackDays: max(lookbackDays, 1)}
}

// Run fetches, ingests, clusters, notifies and sweeps. A total fetch failure
// ends the cycle before anything is written
func (c *Cycle) Run(ctx context.Context) (CycleReport, error) {
	var rep CycleReport
	if err := c.ingest(ctx, &rep); err != nil {
		return rep, err
	}
	if err := c.cluster(ctx, &rep); err != nil {
		return rep, err
	}
	err := c.lease(ctx, jobs.LeaseLifecycle, &rep, func(ctx context.Context) error {
		sw, err := c.Lifecycle.Sweep(ctx)
		rep.Sweep = &sw
		return err
	})
	return rep, err
}

// Ingest fetches and stores new detections without clustering them
func (c *Cycle) Ingest(ctx context.Context) (CycleReport, error) {
	var rep CycleReport
	err := c.ingest(ctx, &rep)
	return rep, err
}

// Cluster assigns pending detections and notifies on the outcome
func (c *Cycle) Cluster(ctx context.Context) (CycleReport, error) {
	var rep CycleReport
	err := c.cluster(ctx, &rep)
	return rep, err
}

// Sweep ends quiet incidents, sends their ended notices and purges expired ones
func (c *Cycle) Sweep(ctx context.Context) (CycleReport, error) {
	var rep CycleReport
	err := c.lease(ctx, jobs.LeaseLifecycle, &rep, func(ctx context.Context) error {
		sw, err := c.Lifecycle.Sweep(ctx)
		rep.Sweep = &sw
		if err != nil {
			return err
		}
		pr, err := c.Lifecycle.Purge(ctx)
		rep.Purge = &pr
		return err
	})
	return rep, err
}

// Purge only deletes incidents past retention
func (c *Cycle) Purge(ctx context.Context) (CycleReport, error) {
	var rep CycleReport
	err := c.lease(ctx, jobs.LeaseLifecycle, &rep, func(ctx context.Context) error {
		pr, err := c.Lifecycle.Purge(ctx)
		rep.Purge = &pr
		return err
	})
	return rep, err
}

// EndedNotifier returns the lifecycle notifier port; each call holds the
// notify lease, and a held lease leaves the incidents pending
func (c *Cycle) EndedNotifier(ended func(ctx context.Context, ids []int64) ([]int64, error)) lifedom.EndedNotifier {
	return EndedVia(c.Lease, ended)
}

// EndedVia wraps ended in the notify lease
func EndedVia(lease jobs.Lease, ended func(ctx context.Context, ids []int64) ([]int64, error)) lifedom.EndedNotifier {
	return lifedom.EndedNotifierFunc(func(ctx context.Context, ids []int64) ([]int64, error) {
		var done []int64
		err := lease.Do(ctx, jobs.LeaseNotify, func(ctx context.Context) error {
			var err error
			done, err = ended(ctx, ids)
			return err
		})
		return done, err
	})
}

func (c *Cycle) ingest(ctx context.Context, rep *CycleReport) error {
	batch, err := c.Fetcher.Fetch(ctx, c.LookbackDays)
	rep.Fetch = batch.Stats
	if err != nil {
		return err
	}
	ir, err := c.Ingester.Ingest(ctx, batch)
	rep.Ingest = &ir
	return err
}

// cluster notifies whatever the engine committed, even when the engine
// stopped early; those detections are never selected again, so a held
// notify lease is waited out rather than skipped
func (c *Cycle) cluster(ctx context.Context, rep *CycleReport) error {
	return c.lease(ctx, jobs.LeaseCluster, rep, func(ctx context.Context) error {
		cr, runErr := c.Engine.Run(ctx)
		rep.Cluster = &cr
		if len(cr.Tagged) > 0 {
			err := jobs.Await(ctx, c.Lease, c.Clock, jobs.LeaseNotify, func(ctx context.Context) error {
				nr, err := c.Notify.NotifyDetections(ctx, cr.Tagged)
				rep.Notify = &nr
				return err
			})
			if err != nil && runErr == nil {
				return err
			}
		}
		return runErr
	})
}

// lease runs fn under name; a held lease is recorded as skipped, not failed
func (c *Cycle) lease(ctx context.Context, name string, rep *CycleReport, fn func(context.Context) error) error {
	start := time.Now()
	err := c.Lease.Do(ctx, name, fn)
	if jobs.IsLeaseHeld(err) {
		rep.Skipped = append(rep.Skipped, name)
		logger.C(ctx).Info().Str("lease", name).Msg("stage skipped; lease held elsewhere")
		return nil
	}
	logger.C(ctx).Debug().Str("lease", name).Int64("elapsed_ms", time.Since(start).Milliseconds()).Msg("stage done")
	return err
}
