// Package jobs provides the single-flight leases, retrying runner, run ledger
// and cron scheduler the pipeline runs under
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
	"firewatch/internal/platform/store"
)

// Lease names used by the pipeline
const (
	LeaseCluster   = "cluster"
	LeaseNotify    = "notify"
	LeaseLifecycle = "lifecycle"
)

// ErrLeaseHeld signals another worker owns the named lease; callers treat it as a clean skip
var ErrLeaseHeld = perr.New(perr.ErrorCodeConflict, "jobs: lease already held")

// IsLeaseHeld reports whether err is a single-flight skip
func IsLeaseHeld(err error) bool { return errors.Is(err, ErrLeaseHeld) }

// Lease runs fn while holding a system-wide named lock
type Lease interface {
	Do(ctx context.Context, name string, fn func(context.Context) error) error
}

const (
	awaitFirst = 100 * time.Millisecond
	awaitCap   = 5 * time.Second
)

// Await runs fn under name, polling with backoff while another holder owns
// it. Only ctx ends the wait; a nil clock is the real one
func Await(ctx context.Context, l Lease, clk clockwork.Clock, name string, fn func(context.Context) error) error {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	wait := awaitFirst
	for {
		err := l.Do(ctx, name, fn)
		if !IsLeaseHeld(err) {
			return err
		}
		logger.C(ctx).Debug().Str("lease", name).Dur("backoff", wait).Msg("lease held; waiting")
		if err := sleepCtx(ctx, clk, wait); err != nil {
			return err
		}
		wait = min(wait*2, awaitCap)
	}
}

// PGLease claims rows in job_leases. An expired row is reclaimable so a
// crashed worker never wedges a task type; a live holder extends its row
// while fn runs
type PGLease struct {
	db      store.TxRunner
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewPGLease returns a Postgres backed lease; ttl <= 0 means 15m
func NewPGLease(db store.TxRunner, ttl time.Duration, m *metrics.Metrics) *PGLease {
	if db == nil {
		panic("jobs.PGLease requires a non nil TxRunner")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PGLease{db: db, ttl: ttl, metrics: m}
}

const claimSQL = `
	INSERT INTO job_leases (name, owner, claimed_at, expires_at)
	VALUES ($1, $2, now(), now() + make_interval(secs => $3))
	ON CONFLICT (name) DO UPDATE
	   SET owner = EXCLUDED.owner, claimed_at = EXCLUDED.claimed_at, expires_at = EXCLUDED.expires_at
	 WHERE job_leases.expires_at <= now()
	RETURNING owner`

// Do claims name, runs fn, then releases the claim
func (l *PGLease) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	token := uuid.New()

	var claimed bool
	if err := l.db.Tx(ctx, func(q store.RowQuerier) error {
		rows, err := q.Query(ctx, claimSQL, name, token, l.ttl.Seconds())
		if err != nil {
			return err
		}
		defer rows.Close()
		claimed = rows.Next()
		return rows.Err()
	}); err != nil {
		return perr.FromPostgresf(err, "claim lease %s", name)
	}
	if !claimed {
		l.metrics.LeaseSkipped(name)
		return ErrLeaseHeld
	}

	log := logger.C(ctx).With().Str("lease", name).Logger()
	log.Debug().Msg("lease claimed")

	hbCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.heartbeat(hbCtx, name, token)
	}()

	err := fn(ctx)

	stop()
	wg.Wait()

	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, rerr := l.db.Exec(relCtx, `DELETE FROM job_leases WHERE name = $1 AND owner = $2`, name, token); rerr != nil {
		// the row expires on its own
		log.Warn().Err(rerr).Msg("lease release failed")
	}
	return err
}

func (l *PGLease) heartbeat(ctx context.Context, name string, token uuid.UUID) {
	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := l.db.Exec(ctx, `
				UPDATE job_leases SET expires_at = now() + make_interval(secs => $3)
				 WHERE name = $1 AND owner = $2`, name, token, l.ttl.Seconds()); err != nil && ctx.Err() == nil {
				logger.C(ctx).Warn().Err(err).Str("lease", name).Msg("lease heartbeat failed")
			}
		}
	}
}

// LocalLease is an in-process lease for tests and single-binary dry runs
type LocalLease struct {
	mu      sync.Mutex
	held    map[string]bool
	metrics *metrics.Metrics
}

// NewLocalLease returns an empty in-process lease
func NewLocalLease(m *metrics.Metrics) *LocalLease {
	return &LocalLease{held: map[string]bool{}, metrics: m}
}

// Do runs fn unless another caller currently holds name
func (l *LocalLease) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	l.mu.Lock()
	if l.held[name] {
		l.mu.Unlock()
		l.metrics.LeaseSkipped(name)
		return ErrLeaseHeld
	}
	l.held[name] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, name)
		l.mu.Unlock()
	}()
	return fn(ctx)
}

// Held reports whether name is currently claimed
func (l *LocalLease) Held(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[name]
}
