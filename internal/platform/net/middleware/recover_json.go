package middleware

import (
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
)

// same shape as the ops server's replies
type panicReply struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RecoverJSON turns a handler panic into a JSON 500 carrying the request id
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			rid := chimw.GetReqID(r.Context())
			logger.C(r.Context()).Error().
				Str("request_id", rid).
				Str("path", r.URL.Path).
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("handler panic")

			if rid != "" {
				w.Header().Set("X-Request-ID", rid)
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(panicReply{
				Status:    http.StatusInternalServerError,
				Code:      perr.ErrorCodePanic.String(),
				Message:   "internal error",
				RequestID: rid,
			})
		}()
		next.ServeHTTP(w, r)
	})
}
