package domain

import (
	"context"
	"time"

	"firewatch/internal/core/fire"
)

// ManagerPort is the public port of the lifecycle module
type ManagerPort interface {
	Sweep(ctx context.Context) (SweepReport, error)
	Purge(ctx context.Context) (PurgeReport, error)
}

// Repo is the only writer of incident status and the only deleter of rows
type Repo interface {
	// ExpireStale ends active incidents quiet since before cutoff, stamping ended_at = now
	ExpireStale(ctx context.Context, cutoff, now time.Time) ([]int64, error)

	// PendingEndNotice lists ended incidents whose ended notification has not gone out
	PendingEndNotice(ctx context.Context, limit int) ([]int64, error)

	// MarkEndNotified stamps end_notified_at on ended incidents that lack it
	MarkEndNotified(ctx context.Context, ids []int64, at time.Time) error

	// Purgeable lists ended, notified incidents with ended_at before cutoff, oldest first
	Purgeable(ctx context.Context, cutoff time.Time, limit int) ([]fire.Incident, error)

	// DeleteIncidents removes notified ended incidents and their detections
	DeleteIncidents(ctx context.Context, ids []int64) (incidents, detections int, err error)

	// CountActive counts active incidents
	CountActive(ctx context.Context) (int, error)
}

// EndedNotifier dispatches incident_ended notifications and returns the ids
// that were handled
type EndedNotifier interface {
	NotifyEnded(ctx context.Context, ids []int64) ([]int64, error)
}

// EndedNotifierFunc adapts a function to EndedNotifier
type EndedNotifierFunc func(ctx context.Context, ids []int64) ([]int64, error)

// NotifyEnded calls f
func (f EndedNotifierFunc) NotifyEnded(ctx context.Context, ids []int64) ([]int64, error) {
	return f(ctx, ids)
}

// Archiver keeps a summary row per incident before it is purged
type Archiver interface {
	Archive(ctx context.Context, ins []fire.Incident) error
}
