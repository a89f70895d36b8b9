package http_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	perr "firewatch/internal/platform/errors"
	phttp "firewatch/internal/platform/net/http"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Reply {
	t.Helper()
	var env phttp.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, rec.Body.String())
	}
	return env
}

func TestOK_CarriesRequestID(t *testing.T) {
	var rec *httptest.ResponseRecorder
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		phttp.OK(w, r, map[string]string{"a": "b"})
	}))
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(middleware.RequestIDHeader, "rid-1")
	h.ServeHTTP(rec, req)

	env := decode(t, rec)
	if rec.Code != http.StatusOK || env.Status != 200 || env.RequestID != "rid-1" || env.Data == nil {
		t.Fatalf("bad envelope: %+v", env)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Fatal("expected content-type set")
	}
}

func TestFail_MapsCode(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.Fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), perr.Unavailablef("db down"))

	env := decode(t, rec)
	if rec.Code != http.StatusServiceUnavailable || env.Code != "unavailable" || env.Message != "db down" {
		t.Fatalf("code=%d env=%+v", rec.Code, env)
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{perr.Newf(perr.ErrorCodeTooManyRequests, "slow down"), http.StatusTooManyRequests},
		{perr.Conflictf("held"), http.StatusConflict},
		{perr.InvalidArgf("bad"), http.StatusBadRequest},
		{perr.New(perr.ErrorCodeValidation, "bad"), http.StatusBadRequest},
		{perr.NotFoundf("gone"), http.StatusNotFound},
		{perr.DBf("boom"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := phttp.StatusOf(c.err); got != c.want {
			t.Fatalf("StatusOf(%v)=%d want %d", c.err, got, c.want)
		}
	}
}
