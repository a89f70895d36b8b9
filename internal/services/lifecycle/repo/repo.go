// Package repo provides postgres access for the lifecycle manager and the
// ClickHouse incident archive
package repo

import (
	"context"
	"time"

	"firewatch/internal/core/fire"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/store"
	clusterrepo "firewatch/internal/services/clustering/repo"
	"firewatch/internal/services/lifecycle/domain"
)

type (
	// PG is a Postgres binder for domain.Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.Repo
func NewPG() repokit.Binder[domain.Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Repo { return &queries{q: q} }

// ExpireStale never touches ended rows, so ended_at is written once
func (r *queries) ExpireStale(ctx context.Context, cutoff, now time.Time) ([]int64, error) {
	return store.Column[int64](ctx, r.q, `
		UPDATE incidents
		SET status = 'ended', ended_at = $2, updated_at = $2
		WHERE status = 'active' AND last_detected_at < $1
		RETURNING id
	`, cutoff.UTC(), now.UTC())
}

func (r *queries) PendingEndNotice(ctx context.Context, limit int) ([]int64, error) {
	return store.Column[int64](ctx, r.q, `
		SELECT id FROM incidents
		WHERE status = 'ended' AND end_notified_at IS NULL
		ORDER BY ended_at, id
		LIMIT $1
	`, limit)
}

func (r *queries) MarkEndNotified(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		UPDATE incidents SET end_notified_at = $2
		WHERE id = ANY($1::bigint[]) AND status = 'ended' AND end_notified_at IS NULL
	`, ids, at.UTC())
	return err
}

func (r *queries) Purgeable(ctx context.Context, cutoff time.Time, limit int) ([]fire.Incident, error) {
	return store.Many(ctx, r.q, clusterrepo.ScanIncident, `
		SELECT `+clusterrepo.IncidentColumns+`
		FROM incidents
		WHERE status = 'ended' AND end_notified_at IS NOT NULL AND ended_at < $1
		ORDER BY ended_at, id
		LIMIT $2
	`, cutoff.UTC(), limit)
}

// DeleteIncidents removes detections first so the cascade has nothing left
// to do; both statements carry the notified gate
func (r *queries) DeleteIncidents(ctx context.Context, ids []int64) (int, int, error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}
	dets, err := store.ExecAffected(ctx, r.q, `
		DELETE FROM detections d
		USING incidents i
		WHERE d.incident_id = i.id
		  AND i.id = ANY($1::bigint[])
		  AND i.status = 'ended' AND i.end_notified_at IS NOT NULL
	`, ids)
	if err != nil {
		return 0, 0, err
	}
	incs, err := store.ExecAffected(ctx, r.q, `
		DELETE FROM incidents
		WHERE id = ANY($1::bigint[]) AND status = 'ended' AND end_notified_at IS NOT NULL
	`, ids)
	if err != nil {
		return 0, 0, err
	}
	return int(incs), int(dets), nil
}

func (r *queries) CountActive(ctx context.Context) (int, error) {
	return store.Scalar[int](ctx, r.q, `SELECT count(*)::int FROM incidents WHERE status = 'active'`)
}
