package pipeline

import (
	"time"

	"firewatch/internal/platform/config"
)

// Options for scheduling and retrying cycles
type Options struct {
	FetchSchedule string        `env:"FETCH_SCHEDULE" validate:"required"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE" validate:"required"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" validate:"min=1,max=10"`
	RetryBase     time.Duration `env:"RETRY_BASE" validate:"gt=0"`
	LeaseTTL      time.Duration `env:"LEASE_TTL" validate:"gte=1m"`
}

// FromConfig fills options from environment
// CORE_JOBS_FETCH_SCHEDULE (default @every 10m) triggers the detection cycle
// CORE_JOBS_SWEEP_SCHEDULE (default @every 1h) triggers sweep and purge
// CORE_JOBS_MAX_ATTEMPTS (default 3), CORE_JOBS_RETRY_BASE (default 2s)
// CORE_JOBS_LEASE_TTL (default 15m) before a crashed holder's lease is reclaimed
func FromConfig(cfg config.Conf) Options {
	j := cfg.Prefix("CORE_JOBS_")
	return Options{
		FetchSchedule: j.MayString("FETCH_SCHEDULE", "@every 10m"),
		SweepSchedule: j.MayString("SWEEP_SCHEDULE", "@every 1h"),
		MaxAttempts:   j.MayInt("MAX_ATTEMPTS", 3),
		RetryBase:     j.MayDuration("RETRY_BASE", 2*time.Second),
		LeaseTTL:      j.MayDuration("LEASE_TTL", 15*time.Minute),
	}
}
