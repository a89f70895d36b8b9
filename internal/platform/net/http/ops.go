package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/store"
)

const readyTimeout = 2 * time.Second

// Ops configures the operational endpoints
type Ops struct {
	// Ready is pinged by /readyz; nil reports ready
	Ready store.Pinger

	// Gatherer backs /metrics; nil serves the default registry
	Gatherer prometheus.Gatherer

	Pprof bool
}

// MountOps mounts /healthz, /readyz, /metrics and optionally /debug/pprof
func MountOps(r chi.Router, o Ops) {
	r.Get("/healthz", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		OK(w, req, map[string]string{"status": "ok"})
	})

	r.Get("/readyz", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		if o.Ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
			defer cancel()
			if err := o.Ready.Ping(ctx); err != nil {
				Fail(w, req, perr.Wrap(err, perr.ErrorCodeUnavailable, "not ready"))
				return
			}
		}
		OK(w, req, map[string]string{"status": "ready"})
	})

	g := o.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.Method(stdhttp.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	if o.Pprof {
		r.Mount("/debug", chimw.Profiler())
	}
}
