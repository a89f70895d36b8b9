// Package module wires the fetch coordinator as a modkit.Module
package module

import (
	"firewatch/internal/adapters/firms"
	"firewatch/internal/modkit"
	"firewatch/internal/platform/config"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/services/fetch/domain"
	"firewatch/internal/services/fetch/service"
)

// Ports exported by the fetch module
type Ports struct {
	Fetcher      domain.FetcherPort
	LookbackDays int
}

// Module implements modkit.Module for fetch
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New wires FIRMS clients for every configured source. A missing map key
// panics at boot since no source could succeed without it
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)
	config.MustValidate(opts)
	if opts.MapKey == "" {
		panic(perr.New(perr.ErrorCodeValidation, "CORE_FETCH_MAP_KEY is required to fetch from FIRMS"))
	}

	sources := make([]domain.Source, 0, len(opts.Sources))
	for _, id := range opts.Sources {
		sources = append(sources, firms.New(id, firms.Options{
			BaseURL:         opts.BaseURL,
			MapKey:          opts.MapKey,
			Area:            opts.Area,
			Timeout:         opts.SourceTimeout,
			BreakerFailures: uint32(opts.BreakerFailures),
		}))
	}
	return NewWithSources(deps, opts, sources...)
}

// NewWithSources wires the coordinator over caller supplied sources
func NewWithSources(deps modkit.Deps, opts Options, sources ...domain.Source) *Module {
	svc := service.New(sources, service.Config{
		SourceTimeout: opts.SourceTimeout,
		JoinGrace:     opts.JoinGrace,
	}, deps.Metrics)

	return &Module{deps: deps, ports: Ports{Fetcher: svc, LookbackDays: opts.LookbackDays}}
}

// Name returns the module name
func (m *Module) Name() string { return "fetch" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
