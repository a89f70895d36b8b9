// Package modkit provides module wiring and core deps
package modkit

import (
	"github.com/jonboulle/clockwork"

	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/config"
	"firewatch/internal/platform/jobs"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
	"firewatch/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse

	// Metrics may be nil; every recorder is nil-safe
	Metrics *metrics.Metrics

	// Clock is the time source for lifecycle cutoffs and retries; nil means real time
	Clock clockwork.Clock

	// Lease provides single-flight per task type across processes
	Lease jobs.Lease
}

// Now returns the clock, defaulting to real time
func (d Deps) Now() clockwork.Clock {
	if d.Clock == nil {
		return clockwork.NewRealClock()
	}
	return d.Clock
}

// Leases returns the configured lease or an in-process one
func (d Deps) Leases() jobs.Lease {
	if d.Lease == nil {
		return jobs.NewLocalLease(d.Metrics)
	}
	return d.Lease
}
