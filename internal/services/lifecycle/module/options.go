package module

import (
	"time"

	"firewatch/internal/platform/config"
)

// Options for the lifecycle module
type Options struct {
	Expiry        time.Duration `env:"EXPIRY" validate:"gt=0"`
	RetentionDays int           `env:"RETENTION_DAYS" validate:"min=1,max=3650"`
	PurgeBatch    int           `env:"PURGE_BATCH" validate:"min=1,max=100000"`
	PurgeRetries  int           `env:"PURGE_RETRIES" validate:"min=1,max=20"`
	RetryBase     time.Duration `env:"RETRY_BASE" validate:"gt=0"`
	Archive       bool          `env:"ARCHIVE"`
}

// Retention converts RetentionDays to a duration
func (o Options) Retention() time.Duration { return time.Duration(o.RetentionDays) * 24 * time.Hour }

// FromConfig fills options from environment
// CORE_LIFECYCLE_EXPIRY (default 24h) is the quiet period before an incident ends
// CORE_LIFECYCLE_RETENTION_DAYS (default 90) keeps ended incidents this long
// CORE_LIFECYCLE_PURGE_BATCH (default 1000) incidents per delete transaction
// CORE_LIFECYCLE_PURGE_RETRIES (default 3) attempts per purge batch
// CORE_LIFECYCLE_RETRY_BASE (default 1s) first purge backoff
// CORE_LIFECYCLE_ARCHIVE (default true) writes summaries to ClickHouse when it is enabled
func FromConfig(cfg config.Conf) Options {
	l := cfg.Prefix("CORE_LIFECYCLE_")
	return Options{
		Expiry:        l.MayDuration("EXPIRY", 24*time.Hour),
		RetentionDays: l.MayInt("RETENTION_DAYS", 90),
		PurgeBatch:    l.MayInt("PURGE_BATCH", 1000),
		PurgeRetries:  l.MayInt("PURGE_RETRIES", 3),
		RetryBase:     l.MayDuration("RETRY_BASE", time.Second),
		Archive:       l.MayBool("ARCHIVE", true),
	}
}
