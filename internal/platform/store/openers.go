package store

import (
	"context"
	"fmt"
	"time"

	chx "firewatch/internal/platform/store/ch"
	"firewatch/internal/platform/store/pg"
)

// openPG builds the pool, waits for the server and returns the traced adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer)
	if err != nil {
		return nil, err
	}

	if err := waitReady(ctx, p, cfg.PG.ConnectRetries, cfg.PG.PingTimeout); err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p, cfg.PG.StatementTimeout), nil
}

// waitReady pings the pool until it answers. The delay between tries doubles
// from 150ms up to 2s. Pings bypass the adapter so they stay out of the SQL trace.
func waitReady(ctx context.Context, p *pg.PG, attempts int, perTry time.Duration) error {
	if attempts <= 0 {
		attempts = 20
	}
	if perTry <= 0 {
		perTry = 3 * time.Second
	}
	delay := 150 * time.Millisecond
	var err error
	for try := 1; ; try++ {
		pctx, cancel := context.WithTimeout(ctx, perTry)
		err = p.Pool.Ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if try == attempts {
			return fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(2*delay, 2*time.Second)
	}
}

func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.CH.ClientName,
		ClientTag:  cfg.CH.ClientTag,
	})
	if err != nil {
		return nil, err
	}
	a := newCHAdapter(c)
	if cfg.CH.LogSQL {
		a.log = s.Log.With().Str("component", "ch").Logger()
		a.trace = true
	}
	return a, nil
}
