package middleware

import (
	"net/http"
	"slices"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"firewatch/internal/platform/logger"
)

// AccessLogOptions configures the zerolog access log
type AccessLogOptions struct {
	Slow  time.Duration
	Quiet []string
}

// level picks the log level for one finished request: server errors first,
// then slow requests, then quiet paths
func (o AccessLogOptions) level(path string, status int, elapsed time.Duration) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case o.Slow > 0 && elapsed >= o.Slow:
		return zerolog.WarnLevel
	case slices.Contains(o.Quiet, path):
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// AccessLogZerolog logs one line per request with status, size and latency
func AccessLogZerolog(o AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			logger.C(r.Context()).WithLevel(o.level(r.URL.Path, status, elapsed)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Float64("elapsed_ms", float64(elapsed.Microseconds())/1000).
				Msg("request")
		})
	}
}
