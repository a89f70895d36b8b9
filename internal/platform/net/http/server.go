package http

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"firewatch/internal/platform/config"
	"firewatch/internal/platform/logger"
)

const shutdownGrace = 5 * time.Second

// Options for the ops listener
type Options struct {
	Addr  string `env:"ADDR" validate:"required"`
	Pprof bool   `env:"PPROF"`
}

// FromConfig reads CORE_OPS_ADDR (default :9090) and CORE_OPS_PPROF
func FromConfig(cfg config.Conf) Options {
	ops := cfg.Prefix("CORE_OPS_")
	return Options{
		Addr:  ops.MayString("ADDR", ":9090"),
		Pprof: ops.MayBool("PPROF", false),
	}
}

// Server serves a chi router until its context ends
type Server struct {
	mux *chi.Mux
	hs  *stdhttp.Server
}

// NewServer builds the router and hands it to each setup func in order
func NewServer(addr string, setup ...func(*chi.Mux)) *Server {
	mux := chi.NewRouter()
	for _, fn := range setup {
		fn(mux)
	}
	return &Server{
		mux: mux,
		hs: &stdhttp.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       time.Minute,
		},
	}
}

func (s *Server) Mux() *chi.Mux { return s.mux }
func (s *Server) Addr() string  { return s.hs.Addr }

// Run blocks until ctx is canceled or the listener fails.
// Cancellation drains in-flight requests for up to shutdownGrace and returns nil.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.hs.Addr)
	if err != nil {
		return err
	}
	logger.Named("http").Info().Str("addr", ln.Addr().String()).Msg("ops listening")

	served := make(chan error, 1)
	go func() { served <- s.hs.Serve(ln) }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := s.hs.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-served; !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}
