package repokit

import (
	"context"
	"time"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/store"
)

const readyTimeout = 5 * time.Second

// Ready pings p with a bounded deadline. A missing dependency or failed ping is Unavailable
func Ready(ctx context.Context, name string, p store.Pinger) error {
	if p == nil {
		return perr.Newf(perr.ErrorCodeUnavailable, "%s: not configured", name)
	}
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s not ready", name)
	}
	return nil
}

// MustReady panics when Ready fails; binaries call it before scheduling work
func MustReady(ctx context.Context, name string, p store.Pinger) {
	if err := Ready(ctx, name, p); err != nil {
		panic(err)
	}
}
