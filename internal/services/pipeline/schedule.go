package pipeline

import (
	"context"

	"firewatch/internal/platform/jobs"
)

// Job names in the run ledger
const (
	JobCycle = "cycle"
	JobSweep = "sweep"
)

// Schedule registers the cycle and the sweep on s, each run through r
func Schedule(s *jobs.Scheduler, r *jobs.Runner, c *Cycle, o Options) error {
	if _, err := s.Add(o.FetchSchedule, JobCycle, func(ctx context.Context) {
		_, _ = r.Run(ctx, JobCycle, func(ctx context.Context) (any, error) { return c.Run(ctx) })
	}); err != nil {
		return err
	}
	_, err := s.Add(o.SweepSchedule, JobSweep, func(ctx context.Context) {
		_, _ = r.Run(ctx, JobSweep, func(ctx context.Context) (any, error) { return c.Sweep(ctx) })
	})
	return err
}
