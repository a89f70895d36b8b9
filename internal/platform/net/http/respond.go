// Package http hosts the ops server: health, readiness, metrics and pprof
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	perr "firewatch/internal/platform/errors"
)

// Reply is the body of every JSON ops endpoint
type Reply struct {
	Status    int    `json:"status"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func send(w stdhttp.ResponseWriter, r *stdhttp.Request, rep Reply) {
	rep.RequestID = middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(rep.Status)
	_ = json.NewEncoder(w).Encode(rep)
}

// OK replies 200 with data
func OK(w stdhttp.ResponseWriter, r *stdhttp.Request, data any) {
	send(w, r, Reply{Status: stdhttp.StatusOK, Data: data})
}

// Fail replies with the status and code derived from err.
// Only the outermost message is exposed, never the cause chain.
func Fail(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	rep := Reply{Status: StatusOf(err), Code: perr.CodeOf(err).String()}
	switch e, ok := perr.As(err); {
	case ok:
		rep.Message = e.Message()
	case err != nil:
		rep.Message = err.Error()
	}
	send(w, r, rep)
}

var statusByCode = map[perr.ErrorCode]int{
	perr.ErrorCodeUnavailable:     stdhttp.StatusServiceUnavailable,
	perr.ErrorCodeTooManyRequests: stdhttp.StatusTooManyRequests,
	perr.ErrorCodeConflict:        stdhttp.StatusConflict,
	perr.ErrorCodeDuplicateKey:    stdhttp.StatusConflict,
	perr.ErrorCodeInvalidArgument: stdhttp.StatusBadRequest,
	perr.ErrorCodeValidation:      stdhttp.StatusBadRequest,
	perr.ErrorCodeJSON:            stdhttp.StatusBadRequest,
	perr.ErrorCodeNotFound:        stdhttp.StatusNotFound,
}

// StatusOf maps err to an http status; uncoded errors are 500
func StatusOf(err error) int {
	if err == nil {
		return stdhttp.StatusOK
	}
	if s, ok := statusByCode[perr.CodeOf(err)]; ok {
		return s
	}
	return stdhttp.StatusInternalServerError
}
