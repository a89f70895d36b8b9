// Package module wires the notification orchestrator as a modkit.Module
package module

import (
	"context"

	"golang.org/x/text/language"

	"firewatch/internal/adapters/notifier"
	"firewatch/internal/modkit"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/config"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/services/notify/domain"
	"firewatch/internal/services/notify/repo"
	"firewatch/internal/services/notify/service"
)

// Ports exported by the notify module
type Ports struct {
	Orchestrator domain.OrchestratorPort

	// Ended adapts NotifyEnded to the lifecycle notifier port shape
	Ended func(ctx context.Context, ids []int64) ([]int64, error)
}

// Module implements modkit.Module for notify
type Module struct {
	deps  modkit.Deps
	ports Ports
	close func() error
}

// New wires the orchestrator against Postgres and the configured driver
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)
	config.MustValidate(opts)

	n, closeFn, err := NewNotifier(opts, deps.Log)
	if err != nil {
		panic(err)
	}
	m := NewWith(deps, opts, repo.NewLocations(deps.PG), repo.NewPG(), n)
	m.close = closeFn
	return m
}

// NewWith wires the orchestrator against explicit stores and notifier
func NewWith(deps modkit.Deps, opts Options, locs domain.LocationStore, incs repokit.Binder[domain.IncidentReader], n domain.Notifier) *Module {
	locs = repo.NewCachedLocations(locs, opts.LocationCacheTTL)
	n = notifier.NewLimited(n, opts.Rate, opts.Burst)
	o := service.New(locs, repokit.MustBind(incs, deps.PG), n, service.NewWording(language.English), deps.Metrics)

	ended := func(ctx context.Context, ids []int64) ([]int64, error) {
		rep, err := o.NotifyEnded(ctx, ids)
		return rep.Dispatched, err
	}
	return &Module{deps: deps, ports: Ports{Orchestrator: o, Ended: ended}, close: func() error { return nil }}
}

// NewNotifier builds the delivery adapter for opts.Driver; the returned
// func releases its resources
func NewNotifier(opts Options, log logger.Logger) (domain.Notifier, func() error, error) {
	noop := func() error { return nil }
	switch opts.Driver {
	case DriverShoutrrr:
		s, err := notifier.NewShoutrrr(opts.ShoutrrrURLs, opts.ShoutrrrTimeout, log)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case DriverKafka:
		k := notifier.NewKafka(opts.KafkaBrokers, opts.KafkaTopic)
		return k, k.Close, nil
	case DriverLog, "":
		return notifier.NewLog(log), noop, nil
	}
	return nil, noop, perr.Newf(perr.ErrorCodeValidation, "unknown notify driver %q", opts.Driver)
}

// Name returns the module name
func (m *Module) Name() string { return "notify" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Close releases the notifier
func (m *Module) Close() error { return m.close() }
