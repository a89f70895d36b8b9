package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"firewatch/internal/platform/logger"
)

// Scheduler triggers jobs on cron specs. An entry that is still running when
// its next tick fires is skipped rather than queued
type Scheduler struct {
	c   *cron.Cron
	log *logger.Logger

	mu  sync.RWMutex
	ctx context.Context
}

// NewScheduler returns a UTC scheduler; specs accept the standard 5 fields and @every
func NewScheduler(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Named("scheduler")
	}
	cl := cronLogger{l: log}
	return &Scheduler{
		c: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
		ctx: context.Background(),
	}
}

// Add registers fn under spec; name only labels logs
func (s *Scheduler) Add(spec, name string, fn func(context.Context)) (cron.EntryID, error) {
	return s.c.AddFunc(spec, func() {
		s.mu.RLock()
		ctx := s.ctx
		s.mu.RUnlock()
		if ctx.Err() != nil {
			return
		}
		s.log.Debug().Str("job", name).Msg("tick")
		fn(ctx)
	})
}

// Start begins firing entries; ctx is handed to every job run
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.c.Start()
}

// Stop halts new ticks and waits for running jobs or ctx, whichever first
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries exposes the registered entries (next/prev fire times)
func (s *Scheduler) Entries() []cron.Entry { return s.c.Entries() }

// Entry returns one entry by id
func (s *Scheduler) Entry(id cron.EntryID) cron.Entry { return s.c.Entry(id) }

type cronLogger struct{ l *logger.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug().Fields(kv).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
