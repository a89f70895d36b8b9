// Package repo provides postgres access for notification lookups and a
// TTL cache in front of the location store
package repo

import (
	"context"

	"github.com/paulmach/orb"

	"firewatch/internal/core/fire"
	"firewatch/internal/core/geo"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/store"
	clusterrepo "firewatch/internal/services/clustering/repo"
	"firewatch/internal/services/notify/domain"
)

// metersPerDegreeLat is the meridional length of one degree, rounded down
// so the SQL prefilter never drops a row the exact check would keep
const metersPerDegreeLat = 110000.0

type (
	// PG is a Postgres binder for domain.IncidentReader
	PG        struct{}
	queries   struct{ q repokit.Queryer }
	locations struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.IncidentReader
func NewPG() repokit.Binder[domain.IncidentReader] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.IncidentReader { return &queries{q: q} }

// NewLocations returns the Postgres location store. Locations are owned by
// the user-facing product; this side only reads them
func NewLocations(q repokit.Queryer) domain.LocationStore {
	if q == nil {
		panic("notify repo: nil queryer")
	}
	return &locations{q: q}
}

func (r *queries) Incidents(ctx context.Context, ids []int64) (map[int64]fire.Incident, error) {
	out := make(map[int64]fire.Incident, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ins, err := store.Many(ctx, r.q, clusterrepo.ScanIncident, `
		SELECT `+clusterrepo.IncidentColumns+`
		FROM incidents
		WHERE id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return nil, err
	}
	for _, in := range ins {
		out[in.ID] = in
	}
	return out, nil
}

// ActiveNear prefilters on the search box around p and keeps incidents whose
// bound is within radiusM by haversine
func (r *queries) ActiveNear(ctx context.Context, p orb.Point, radiusM float64) ([]int64, error) {
	box := geo.SearchBox(p, radiusM)
	ins, err := store.Many(ctx, r.q, clusterrepo.ScanIncident, `
		SELECT `+clusterrepo.IncidentColumns+`
		FROM incidents
		WHERE status = 'active'
		  AND min_lat <= $2 AND max_lat >= $1
		  AND min_lon <= $4 AND max_lon >= $3
		ORDER BY id
	`, box.Min.Lat(), box.Max.Lat(), box.Min.Lon(), box.Max.Lon())
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, in := range ins {
		if geo.DistanceToBound(in.Bound(), p) <= radiusM {
			ids = append(ids, in.ID)
		}
	}
	return ids, nil
}

const locationColumns = `id, user_id, name, latitude, longitude, radius_m`

func scanLocation(r store.Row) (fire.Location, error) {
	var l fire.Location
	err := r.Scan(&l.ID, &l.UserID, &l.Name, &l.Latitude, &l.Longitude, &l.RadiusM)
	return l, err
}

// FindNear narrows by latitude band in SQL; longitude spacing depends on
// latitude, so the radius check runs in Go
func (r *locations) FindNear(ctx context.Context, p orb.Point) ([]fire.Location, error) {
	rows, err := store.Many(ctx, r.q, scanLocation, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE abs(latitude - $1) * $2 <= radius_m
		ORDER BY user_id, id
	`, p.Lat(), metersPerDegreeLat)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, l := range rows {
		if l.Contains(p) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *locations) FindNearIncident(ctx context.Context, b orb.Bound) ([]fire.Location, error) {
	rows, err := store.Many(ctx, r.q, scanLocation, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE latitude BETWEEN $1 - radius_m / $3 AND $2 + radius_m / $3
		ORDER BY user_id, id
	`, b.Min.Lat(), b.Max.Lat(), metersPerDegreeLat)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, l := range rows {
		if l.Touches(b) {
			out = append(out, l)
		}
	}
	return out, nil
}
