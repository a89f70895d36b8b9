// Package module wires the fire ingestor as a modkit.Module
package module

import (
	"firewatch/internal/modkit"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/config"
	"firewatch/internal/services/ingest/domain"
	"firewatch/internal/services/ingest/repo"
	"firewatch/internal/services/ingest/service"
)

// Ports exported by the ingest module
type Ports struct {
	Ingester domain.IngesterPort
}

// Module implements modkit.Module for ingest
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New wires the ingestor against Postgres
func New(deps modkit.Deps) *Module { return NewWithBinder(deps, repo.NewPG()) }

// NewWithBinder wires the ingestor against any repo binder
func NewWithBinder(deps modkit.Deps, b repokit.Binder[domain.Repo]) *Module {
	opts := FromConfig(deps.Cfg)
	config.MustValidate(opts)

	svc := service.New(deps.PG, b, service.Config{Chunk: opts.Chunk}, deps.Metrics)
	return &Module{deps: deps, ports: Ports{Ingester: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
