// Package module wires the lifecycle manager as a modkit.Module
package module

import (
	"firewatch/internal/modkit"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/config"
	"firewatch/internal/services/lifecycle/domain"
	"firewatch/internal/services/lifecycle/repo"
	"firewatch/internal/services/lifecycle/service"
)

// Ports exported by the lifecycle module
type Ports struct {
	Manager domain.ManagerPort

	// Archiver is nil unless ClickHouse archiving is on
	Archiver *repo.CHArchiver
}

// Module implements modkit.Module for lifecycle
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New wires the manager against Postgres, archiving to ClickHouse when deps.CH is set
func New(deps modkit.Deps, notifier domain.EndedNotifier) *Module {
	return NewWithBinder(deps, repo.NewPG(), notifier)
}

// NewWithBinder wires the manager against any repo binder
func NewWithBinder(deps modkit.Deps, b repokit.Binder[domain.Repo], notifier domain.EndedNotifier) *Module {
	opts := FromConfig(deps.Cfg)
	config.MustValidate(opts)

	var (
		archiver domain.Archiver
		ch       *repo.CHArchiver
	)
	if opts.Archive && deps.CH != nil {
		ch = repo.NewCHArchiver(deps.CH)
		archiver = ch
	}

	mgr := service.New(deps.PG, b, notifier, archiver, deps.Now(), service.Config{
		Expiry:       opts.Expiry,
		Retention:    opts.Retention(),
		PurgeBatch:   opts.PurgeBatch,
		PurgeRetries: opts.PurgeRetries,
		RetryBase:    opts.RetryBase,
	}, deps.Metrics)

	return &Module{deps: deps, ports: Ports{Manager: mgr, Archiver: ch}}
}

// Name returns the module name
func (m *Module) Name() string { return "lifecycle" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
