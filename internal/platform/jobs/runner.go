package jobs

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
)

// Func is one attempt of a job; stats are stored in the ledger on finish
type Func func(ctx context.Context) (stats any, err error)

// Result summarizes a finished run
type Result struct {
	RunID    uuid.UUID
	Status   string
	Attempts int
	Stats    any
}

// Runner retries a job with exponential backoff and records every run
type Runner struct {
	Ledger      Ledger
	Metrics     *metrics.Metrics
	Clock       clockwork.Clock
	MaxAttempts int
	RetryBase   time.Duration
	RetryCap    time.Duration

	jitter func(time.Duration) time.Duration
}

// RunnerOptions configures NewRunner
type RunnerOptions struct {
	MaxAttempts int
	RetryBase   time.Duration
	RetryCap    time.Duration
}

// NewRunner returns a runner; nil ledger or clock get no-op and real defaults
func NewRunner(l Ledger, m *metrics.Metrics, clk clockwork.Clock, o RunnerOptions) *Runner {
	if l == nil {
		l = NopLedger{}
	}
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Runner{
		Ledger:      l,
		Metrics:     m,
		Clock:       clk,
		MaxAttempts: max(o.MaxAttempts, 1),
		RetryBase:   o.RetryBase,
		RetryCap:    o.RetryCap,
	}
}

// Run executes fn up to MaxAttempts times. Retryable errors (perr.Retryable)
// back off and try again; anything else fails the run at once. A lease skip
// is recorded as skipped and returns nil
func (r *Runner) Run(ctx context.Context, name string, fn Func) (Result, error) {
	runID := uuid.New()
	ctx = logger.WithRun(ctx, name, runID.String())
	log := logger.C(ctx)

	start := r.Clock.Now()
	res := Result{RunID: runID, Status: StatusRunning}
	if err := r.Ledger.Start(ctx, Run{ID: runID, Name: name, StartedAt: start}); err != nil {
		log.Warn().Err(err).Msg("ledger start failed")
	}
	log.Info().Msg("job start")

	var last error
	attempts := max(r.MaxAttempts, 1)
	for i := range attempts {
		res.Attempts = i + 1
		stats, err := r.attempt(ctx, fn)
		res.Stats = stats
		if err == nil {
			last = nil
			res.Status = StatusOK
			break
		}
		last = err
		if IsLeaseHeld(err) {
			res.Status = StatusSkipped
			last = nil
			break
		}
		res.Status = StatusError
		if !perr.Retryable(err) || i == attempts-1 {
			break
		}
		wait := r.backoff(i)
		log.Warn().Err(err).Int("attempt", i+1).Dur("backoff", wait).Msg("job attempt failed; retrying")
		if err := sleepCtx(ctx, r.Clock, wait); err != nil {
			last = err
			break
		}
	}

	elapsed := r.Clock.Since(start)
	run := Run{
		ID:         runID,
		Name:       name,
		Status:     res.Status,
		Attempts:   res.Attempts,
		Stats:      res.Stats,
		StartedAt:  start,
		FinishedAt: start.Add(elapsed),
		ElapsedMS:  int(elapsed.Milliseconds()),
	}
	if last != nil {
		run.Err = last.Error()
		run.ErrCode = perr.CodeOf(last).String()
	}
	if err := r.Ledger.Finish(context.WithoutCancel(ctx), run); err != nil {
		log.Warn().Err(err).Msg("ledger finish failed")
	}
	r.Metrics.JobFinished(name, res.Status, elapsed)

	ev := log.Info()
	if last != nil {
		ev = log.Error().Err(last)
	}
	ev.Str("status", res.Status).Int("attempts", res.Attempts).Int64("elapsed_ms", elapsed.Milliseconds()).Msg("job finish")
	return res, last
}

func (r *Runner) attempt(ctx context.Context, fn Func) (stats any, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.C(ctx).Error().Str("stack", string(debug.Stack())).Msg("job panic")
			err = perr.Newf(perr.ErrorCodePanic, "panic: %v", p)
		}
	}()
	return fn(ctx)
}

func (r *Runner) backoff(i int) time.Duration {
	base := r.RetryBase
	if base <= 0 {
		base = 2 * time.Second
	}
	limit := r.RetryCap
	if limit <= 0 {
		limit = time.Minute
	}
	d := min(base<<i, limit)
	if r.jitter != nil {
		return r.jitter(d)
	}
	if d < 2 {
		return d
	}
	return d/2 + rand.N(d/2)
}

func sleepCtx(ctx context.Context, clk clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-clk.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// String renders a result for CLI output
func (res Result) String() string {
	return fmt.Sprintf("run=%s status=%s attempts=%d", res.RunID, res.Status, res.Attempts)
}
