// Package middleware builds the ops server's chi middleware chain
package middleware

import (
	"compress/flate"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options tunes the chain
type Options struct {
	// Slow is the access log warn threshold; 0 disables it
	Slow time.Duration

	// Timeout cancels the request context; 0 disables it
	Timeout time.Duration

	// MaxInFlight rejects requests over the limit with 429; 0 disables it
	MaxInFlight int

	// Quiet paths are logged at debug (probes and scrapes)
	Quiet []string
}

// OpsOptions are the worker's ops server settings
func OpsOptions() Options {
	return Options{
		Slow:        time.Second,
		Timeout:     30 * time.Second,
		MaxInFlight: 32,
		Quiet:       []string{"/healthz", "/readyz", "/metrics"},
	}
}

// Chain returns the middleware for o, outermost first
func Chain(o Options) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		chimw.RealIP,
		chimw.RequestID,
		RecoverJSON,
		AccessLogZerolog(AccessLogOptions{Slow: o.Slow, Quiet: o.Quiet}),
	}
	if o.MaxInFlight > 0 {
		mws = append(mws, chimw.Throttle(o.MaxInFlight))
	}
	if o.Timeout > 0 {
		mws = append(mws, chimw.Timeout(o.Timeout))
	}
	return append(mws, chimw.Compress(flate.DefaultCompression), chimw.NoCache)
}

// Defaults is Chain(OpsOptions())
func Defaults() []func(http.Handler) http.Handler { return Chain(OpsOptions()) }
