// Package service provides the incident lifecycle manager: expiry of quiet
// incidents, ended notifications and retention purge
package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"

	"firewatch/internal/core/fire"
	"firewatch/internal/modkit/repokit"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
	"firewatch/internal/platform/store"
	"firewatch/internal/services/lifecycle/domain"
)

// Config holds lifecycle thresholds
type Config struct {
	// Expiry is the quiet period after which an active incident ends; <=0 -> 24h
	Expiry time.Duration
	// Retention is how long an ended incident is kept; <=0 -> 90 days
	Retention time.Duration
	// PurgeBatch bounds incidents deleted per transaction; <=0 -> 1000
	PurgeBatch int
	// PurgeRetries is the attempts per purge batch; <=0 -> 3
	PurgeRetries int
	// RetryBase is the first purge backoff; <=0 -> 1s
	RetryBase time.Duration
	// NoticeBatch bounds ended incidents handed to the notifier per sweep; <=0 -> 1000
	NoticeBatch int
}

// Manager implements domain.ManagerPort
type Manager struct {
	DB       repokit.TxRunner
	Binder   repokit.Binder[domain.Repo]
	Notifier domain.EndedNotifier
	Archiver domain.Archiver
	Clock    clockwork.Clock
	Cfg      Config
	Metrics  *metrics.Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs the manager. A nil archiver keeps no residue; a nil clock is real time
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.Repo],
	notifier domain.EndedNotifier,
	archiver domain.Archiver,
	clk clockwork.Clock,
	cfg Config,
	m *metrics.Metrics,
) *Manager {
	if db == nil {
		panic("lifecycle.Manager requires a non nil TxRunner")
	}
	if binder == nil {
		panic("lifecycle.Manager requires a non nil Repo binder")
	}
	if notifier == nil {
		panic("lifecycle.Manager requires an ended notifier")
	}
	if archiver == nil {
		archiver = NopArchiver{}
	}
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.PurgeBatch <= 0 {
		cfg.PurgeBatch = 1000
	}
	if cfg.PurgeRetries <= 0 {
		cfg.PurgeRetries = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.NoticeBatch <= 0 {
		cfg.NoticeBatch = 1000
	}
	mgr := &Manager{
		DB: db, Binder: binder, Notifier: notifier, Archiver: archiver,
		Clock: clk, Cfg: cfg, Metrics: m,
	}
	mgr.sleep = mgr.clockSleep
	return mgr
}

// Sweep ends stale incidents, then hands every ended incident still lacking
// its ended notification to the notifier and stamps the ones it handled.
// Incidents the notifier did not handle stay pending for the next sweep
func (m *Manager) Sweep(ctx context.Context) (domain.SweepReport, error) {
	log := logger.C(ctx)
	now := m.Clock.Now().UTC()
	cutoff := now.Add(-m.Cfg.Expiry)

	var rep domain.SweepReport
	err := store.RunTx(ctx, m.DB, "lifecycle.expire", func(ctx context.Context, q store.RowQuerier) error {
		ids, err := repokit.MustBind(m.Binder, q).ExpireStale(ctx, cutoff, now)
		rep.Ended = ids
		return err
	})
	if err != nil {
		return rep, err
	}

	repo := repokit.MustBind(m.Binder, m.DB)
	pending, err := repo.PendingEndNotice(ctx, m.Cfg.NoticeBatch)
	if err != nil {
		return rep, perr.FromPostgres(err, "list pending ended notices")
	}

	if len(pending) > 0 {
		done, err := m.Notifier.NotifyEnded(ctx, pending)
		if err != nil {
			rep.NotifyErr = err.Error()
			log.Warn().Err(err).Int("pending", len(pending)).Msg("ended notifications not dispatched")
		}
		if len(done) > 0 {
			err := store.RunTx(ctx, m.DB, "lifecycle.mark_notified", func(ctx context.Context, q store.RowQuerier) error {
				return repokit.MustBind(m.Binder, q).MarkEndNotified(ctx, done, m.Clock.Now().UTC())
			})
			if err != nil {
				return rep, err
			}
			rep.Notified = done
		}
	}
	rep.Pending = len(pending) - len(rep.Notified)

	active, err := repo.CountActive(ctx)
	if err != nil {
		return rep, perr.FromPostgres(err, "count active incidents")
	}
	rep.Active = active
	m.Metrics.Swept(len(rep.Ended), active)

	log.Info().
		Int("ended", len(rep.Ended)).
		Int("notified", len(rep.Notified)).
		Int("pending", rep.Pending).
		Int("active", active).
		Time("cutoff", cutoff).
		Msg("lifecycle sweep finished")
	return rep, nil
}

// Purge deletes ended, notified incidents past retention in bounded batches.
// Each batch is archived then deleted in one transaction and retried with
// backoff when the failure is transient. Committed batches stay committed
func (m *Manager) Purge(ctx context.Context) (domain.PurgeReport, error) {
	log := logger.C(ctx)
	cutoff := m.Clock.Now().UTC().Add(-m.Cfg.Retention)

	var rep domain.PurgeReport
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		found, incs, dets, err := m.purgeBatchWithRetry(ctx, cutoff, &rep)
		if err != nil {
			rep.Err = err.Error()
			log.Error().Err(err).Int("batches", rep.Batches).Int("incidents", rep.Incidents).Msg("purge stopped")
			m.Metrics.Purged(rep.Incidents)
			return rep, err
		}
		if found == 0 {
			break
		}
		rep.Batches++
		rep.Incidents += incs
		rep.Detections += dets
		if found < m.Cfg.PurgeBatch || incs == 0 {
			break
		}
	}

	m.Metrics.Purged(rep.Incidents)
	log.Info().
		Int("batches", rep.Batches).
		Int("incidents", rep.Incidents).
		Int("detections", rep.Detections).
		Int("archived", rep.Archived).
		Int("retries", rep.Retries).
		Time("cutoff", cutoff).
		Msg("purge finished")
	return rep, nil
}

func (m *Manager) purgeBatchWithRetry(ctx context.Context, cutoff time.Time, rep *domain.PurgeReport) (found, incs, dets int, err error) {
	for i := range m.Cfg.PurgeRetries {
		found, incs, dets, err = m.purgeBatch(ctx, cutoff, rep)
		if err == nil || !perr.Retryable(err) || i == m.Cfg.PurgeRetries-1 {
			return found, incs, dets, err
		}
		rep.Retries++
		wait := m.backoff(i)
		logger.C(ctx).Warn().Err(err).Int("attempt", i+1).Dur("backoff", wait).Msg("purge batch failed; retrying")
		if serr := m.sleep(ctx, wait); serr != nil {
			return found, incs, dets, serr
		}
	}
	return found, incs, dets, err
}

func (m *Manager) purgeBatch(ctx context.Context, cutoff time.Time, rep *domain.PurgeReport) (found, incs, dets int, err error) {
	batch, err := repokit.MustBind(m.Binder, m.DB).Purgeable(ctx, cutoff, m.Cfg.PurgeBatch)
	if err != nil {
		return 0, 0, 0, perr.FromPostgres(err, "list purgeable incidents")
	}
	if len(batch) == 0 {
		return 0, 0, 0, nil
	}

	if err := m.Archiver.Archive(ctx, batch); err != nil {
		return len(batch), 0, 0, perr.Wrap(err, perr.ErrorCodeUnavailable, "archive incidents")
	}
	rep.Archived += len(batch)

	ids := make([]int64, 0, len(batch))
	for _, in := range batch {
		ids = append(ids, in.ID)
	}
	err = store.RunTx(ctx, m.DB, "lifecycle.purge", func(ctx context.Context, q store.RowQuerier) error {
		var derr error
		incs, dets, derr = repokit.MustBind(m.Binder, q).DeleteIncidents(ctx, ids)
		return derr
	})
	if err != nil {
		return len(batch), 0, 0, err
	}
	return len(batch), incs, dets, nil
}

// backoff doubles from RetryBase up to 30s with half jitter
func (m *Manager) backoff(i int) time.Duration {
	d := min(m.Cfg.RetryBase<<i, 30*time.Second)
	return d/2 + rand.N(d/2+1)
}

func (m *Manager) clockSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.Clock.After(d):
		return nil
	}
}

// NopArchiver keeps no residue
type NopArchiver struct{}

// Archive does nothing
func (NopArchiver) Archive(context.Context, []fire.Incident) error { return nil }
