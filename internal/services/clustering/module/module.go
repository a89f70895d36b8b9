// Package module wires the clustering engine as a modkit.Module
package module

import (
	"firewatch/internal/modkit"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/config"
	"firewatch/internal/services/clustering/domain"
	"firewatch/internal/services/clustering/repo"
	"firewatch/internal/services/clustering/service"
)

// Ports exported by the clustering module
type Ports struct {
	Engine domain.EnginePort
}

// Module implements modkit.Module for clustering
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New wires the engine against Postgres
func New(deps modkit.Deps) *Module { return NewWithBinder(deps, repo.NewPG()) }

// NewWithBinder wires the engine against any repo binder
func NewWithBinder(deps modkit.Deps, b repokit.Binder[domain.Repo]) *Module {
	opts := FromConfig(deps.Cfg)
	config.MustValidate(opts)
	eng := service.New(deps.PG, b, service.Config{DistanceM: opts.DistanceM, Batch: opts.Batch}, deps.Metrics)
	return &Module{deps: deps, ports: Ports{Engine: eng}}
}

// Name returns the module name
func (m *Module) Name() string { return "clustering" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
