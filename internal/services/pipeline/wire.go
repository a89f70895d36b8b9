package pipeline

import (
	"firewatch/internal/modkit"
	"firewatch/internal/modkit/module"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/config"
	clusterdom "firewatch/internal/services/clustering/domain"
	clustermod "firewatch/internal/services/clustering/module"
	clusterrepo "firewatch/internal/services/clustering/repo"
	fetchdom "firewatch/internal/services/fetch/domain"
	fetchmod "firewatch/internal/services/fetch/module"
	ingestdom "firewatch/internal/services/ingest/domain"
	ingestmod "firewatch/internal/services/ingest/module"
	ingestrepo "firewatch/internal/services/ingest/repo"
	lifedom "firewatch/internal/services/lifecycle/domain"
	lifemod "firewatch/internal/services/lifecycle/module"
	liferepo "firewatch/internal/services/lifecycle/repo"
	notifydom "firewatch/internal/services/notify/domain"
	notifymod "firewatch/internal/services/notify/module"
	notifyrepo "firewatch/internal/services/notify/repo"
)

// Backend is the storage every module binds against
type Backend struct {
	Ingest     repokit.Binder[ingestdom.Repo]
	Clustering repokit.Binder[clusterdom.Repo]
	Lifecycle  repokit.Binder[lifedom.Repo]
	Incidents  repokit.Binder[notifydom.IncidentReader]
	Locations  notifydom.LocationStore
}

// PGBackend binds every module to Postgres through q
func PGBackend(q repokit.Queryer) Backend {
	return Backend{
		Ingest:     ingestrepo.NewPG(),
		Clustering: clusterrepo.NewPG(),
		Lifecycle:  liferepo.NewPG(),
		Incidents:  notifyrepo.NewPG(),
		Locations:  notifyrepo.NewLocations(q),
	}
}

// Wired is the assembled pipeline
type Wired struct {
	Cycle *Cycle

	// Archiver is nil unless ClickHouse archiving is on
	Archiver *liferepo.CHArchiver

	// Close releases the notifier
	Close func() error
}

// Wire builds every module over deps and b, registers their ports and
// returns the cycle. sources overrides the configured FIRMS sources
func Wire(deps modkit.Deps, b Backend, sources ...fetchdom.Source) (Wired, error) {
	var fm *fetchmod.Module
	if len(sources) > 0 {
		opts := fetchmod.FromConfig(deps.Cfg)
		config.MustValidate(opts)
		fm = fetchmod.NewWithSources(deps, opts, sources...)
	} else {
		fm = fetchmod.New(deps)
	}
	fetch := module.MustPortsOf[fetchmod.Ports](fm)

	ing := ingestmod.NewWithBinder(deps, b.Ingest)
	cl := clustermod.NewWithBinder(deps, b.Clustering)

	nopts := notifymod.FromConfig(deps.Cfg)
	config.MustValidate(nopts)
	n, closeFn, err := notifymod.NewNotifier(nopts, deps.Log)
	if err != nil {
		return Wired{}, err
	}
	nm := notifymod.NewWith(deps, nopts, b.Locations, b.Incidents, n)
	notify := module.MustPortsOf[notifymod.Ports](nm)

	lease := deps.Leases()
	lm := lifemod.NewWithBinder(deps, b.Lifecycle, EndedVia(lease, notify.Ended))
	life := module.MustPortsOf[lifemod.Ports](lm)

	for _, m := range []modkit.Module{fm, ing, cl, nm, lm} {
		module.RegisterModule(m)
	}

	c := New(Stages{
		Fetcher:   fetch.Fetcher,
		Ingester:  module.MustPortsOf[ingestmod.Ports](ing).Ingester,
		Engine:    module.MustPortsOf[clustermod.Ports](cl).Engine,
		Notify:    notify.Orchestrator,
		Lifecycle: life.Manager,
	}, lease, fetch.LookbackDays)
	c.Clock = deps.Clock

	return Wired{Cycle: c, Archiver: life.Archiver, Close: closeFn}, nil
}
