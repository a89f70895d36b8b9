// Package repo provides postgres access for detection upserts
package repo

import (
	"context"
	"time"

	"firewatch/internal/core/fire"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/services/ingest/domain"
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

const upsertSQL = `
	INSERT INTO detections (
		identity_key, source, latitude, longitude,
		bright_ti4, bright_ti5, scan, track, frp,
		confidence, daynight, satellite, instrument, version, detected_at
	)
	SELECT * FROM unnest(
		$1::text[], $2::text[], $3::float8[], $4::float8[],
		$5::float8[], $6::float8[], $7::float8[], $8::float8[], $9::float8[],
		$10::text[], $11::text[], $12::text[], $13::text[], $14::text[], $15::timestamptz[]
	)
	ON CONFLICT (identity_key) DO NOTHING
`

// UpsertDetections inserts new identity keys in one statement; existing rows
// are never updated so the first write wins
func (r *queries) UpsertDetections(ctx context.Context, ds []fire.Detection) (int, error) {
	if len(ds) == 0 {
		return 0, nil
	}
	n := len(ds)
	var (
		keys       = make([]string, 0, n)
		sources    = make([]string, 0, n)
		lats       = make([]float64, 0, n)
		lons       = make([]float64, 0, n)
		b4s        = make([]float64, 0, n)
		b5s        = make([]float64, 0, n)
		scans      = make([]float64, 0, n)
		tracks     = make([]float64, 0, n)
		frps       = make([]float64, 0, n)
		confs      = make([]string, 0, n)
		dns        = make([]string, 0, n)
		sats       = make([]string, 0, n)
		insts      = make([]string, 0, n)
		versions   = make([]string, 0, n)
		detectedAt = make([]time.Time, 0, n)
	)
	for _, d := range ds {
		keys = append(keys, d.IdentityKey)
		sources = append(sources, d.Source)
		lats = append(lats, d.Latitude)
		lons = append(lons, d.Longitude)
		b4s = append(b4s, d.BrightTI4)
		b5s = append(b5s, d.BrightTI5)
		scans = append(scans, d.Scan)
		tracks = append(tracks, d.Track)
		frps = append(frps, d.FRP)
		confs = append(confs, string(d.Confidence))
		dns = append(dns, d.DayNight)
		sats = append(sats, d.Satellite)
		insts = append(insts, d.Instrument)
		versions = append(versions, d.Version)
		detectedAt = append(detectedAt, d.DetectedAt.UTC())
	}

	tag, err := r.q.Exec(ctx, upsertSQL,
		keys, sources, lats, lons,
		b4s, b5s, scans, tracks, frps,
		confs, dns, sats, insts, versions, detectedAt,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
