// Package repo provides postgres access for the clustering engine
package repo

import (
	"context"

	"github.com/paulmach/orb"

	"firewatch/internal/core/fire"
	"firewatch/internal/modkit/repokit"
	"firewatch/internal/platform/store"
	"firewatch/internal/services/clustering/domain"
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

// IncidentColumns is the column list ScanIncident expects
const IncidentColumns = `
	id, status, min_lat, max_lat, min_lon, max_lon, center_lat, center_lon,
	fire_count, first_detected_at, last_detected_at,
	min_frp, max_frp, avg_frp, total_frp, ended_at, end_notified_at`

// ScanIncident maps one IncidentColumns row
func ScanIncident(r store.Row) (fire.Incident, error) {
	var (
		in     fire.Incident
		status string
	)
	err := r.Scan(
		&in.ID, &status, &in.MinLat, &in.MaxLat, &in.MinLon, &in.MaxLon, &in.CenterLat, &in.CenterLon,
		&in.FireCount, &in.FirstDetectedAt, &in.LastDetectedAt,
		&in.MinFRP, &in.MaxFRP, &in.AvgFRP, &in.TotalFRP, &in.EndedAt, &in.EndNotifiedAt,
	)
	in.Status = fire.Status(status)
	return in, err
}

func scanDetection(r store.Row) (fire.Detection, error) {
	var (
		d    fire.Detection
		conf string
	)
	err := r.Scan(
		&d.ID, &d.IdentityKey, &d.Source, &d.Latitude, &d.Longitude,
		&d.BrightTI4, &d.BrightTI5, &d.Scan, &d.Track, &d.FRP,
		&conf, &d.DayNight, &d.Satellite, &d.Instrument, &d.Version, &d.DetectedAt, &d.IncidentID,
	)
	d.Confidence = fire.Confidence(conf)
	return d, err
}

func (r *queries) Unassigned(ctx context.Context, after domain.Cursor, limit int) ([]fire.Detection, error) {
	return store.Many(ctx, r.q, scanDetection, `
		SELECT id, identity_key, source, latitude, longitude,
		       bright_ti4, bright_ti5, scan, track, frp,
		       confidence, daynight, satellite, instrument, version, detected_at, incident_id
		FROM detections
		WHERE incident_id IS NULL
		  AND (detected_at, id) > ($1, $2)
		ORDER BY detected_at, id
		LIMIT $3
	`, after.DetectedAt, after.ID, limit)
}

// Candidates uses the partial active bbox index; the box never wraps
func (r *queries) Candidates(ctx context.Context, box orb.Bound) ([]fire.Incident, error) {
	return store.Many(ctx, r.q, ScanIncident, `
		SELECT `+IncidentColumns+`
		FROM incidents
		WHERE status = 'active'
		  AND min_lat <= $2 AND max_lat >= $1
		  AND min_lon <= $4 AND max_lon >= $3
		ORDER BY id
		FOR UPDATE
	`, box.Min.Lat(), box.Max.Lat(), box.Min.Lon(), box.Max.Lon())
}

func (r *queries) Attach(ctx context.Context, detectionID, incidentID int64) (bool, error) {
	n, err := store.ExecAffected(ctx, r.q, `
		UPDATE detections SET incident_id = $2
		WHERE id = $1 AND incident_id IS NULL
	`, detectionID, incidentID)
	return n == 1, err
}

func (r *queries) CreateIncident(ctx context.Context, in fire.Incident) (int64, error) {
	return store.Scalar[int64](ctx, r.q, `
		INSERT INTO incidents (
			status, min_lat, max_lat, min_lon, max_lon, center_lat, center_lon,
			fire_count, first_detected_at, last_detected_at,
			min_frp, max_frp, avg_frp, total_frp
		) VALUES ('active', $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`,
		in.MinLat, in.MaxLat, in.MinLon, in.MaxLon, in.CenterLat, in.CenterLon,
		in.FireCount, in.FirstDetectedAt, in.LastDetectedAt,
		in.MinFRP, in.MaxFRP, in.AvgFRP, in.TotalFRP,
	)
}

// SaveIncident only touches active rows; an incident ended between the
// candidate read and this write is reported as fire.ErrEnded
func (r *queries) SaveIncident(ctx context.Context, in fire.Incident) error {
	n, err := store.ExecAffected(ctx, r.q, `
		UPDATE incidents SET
			min_lat = $2, max_lat = $3, min_lon = $4, max_lon = $5,
			center_lat = $6, center_lon = $7,
			fire_count = $8, first_detected_at = $9, last_detected_at = $10,
			min_frp = $11, max_frp = $12, avg_frp = $13, total_frp = $14,
			updated_at = now()
		WHERE id = $1 AND status = 'active'
	`,
		in.ID, in.MinLat, in.MaxLat, in.MinLon, in.MaxLon, in.CenterLat, in.CenterLon,
		in.FireCount, in.FirstDetectedAt, in.LastDetectedAt,
		in.MinFRP, in.MaxFRP, in.AvgFRP, in.TotalFRP,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return fire.ErrEnded
	}
	return nil
}
