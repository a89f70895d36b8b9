package fire

import (
	"time"

	"github.com/paulmach/orb"

	perr "firewatch/internal/platform/errors"
)

// Status is the incident lifecycle state
type Status string

// Incident states; ended is terminal until purge
const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// ErrEnded is returned when a detection would attach to an ended incident
var ErrEnded = perr.New(perr.ErrorCodeConflict, "incident has ended")

// Incident is the running aggregate over its member detections
type Incident struct {
	ID     int64
	Status Status

	MinLat, MaxLat float64
	MinLon, MaxLon float64

	CenterLat, CenterLon float64

	FireCount       int
	FirstDetectedAt time.Time
	LastDetectedAt  time.Time

	MinFRP   float64
	MaxFRP   float64
	AvgFRP   float64
	TotalFRP float64

	EndedAt       *time.Time
	EndNotifiedAt *time.Time
}

// NewIncident seeds an active incident from its first detection
func NewIncident(d Detection) Incident {
	at := d.DetectedAt.UTC()
	return Incident{
		Status:          StatusActive,
		MinLat:          d.Latitude,
		MaxLat:          d.Latitude,
		MinLon:          d.Longitude,
		MaxLon:          d.Longitude,
		CenterLat:       d.Latitude,
		CenterLon:       d.Longitude,
		FireCount:       1,
		FirstDetectedAt: at,
		LastDetectedAt:  at,
		MinFRP:          d.FRP,
		MaxFRP:          d.FRP,
		AvgFRP:          d.FRP,
		TotalFRP:        d.FRP,
	}
}

// Absorb returns the incident updated with one more member. It extends the
// bounds, recenters on the bbox midpoint and folds the detection into the
// counters without looking at earlier members
func (in Incident) Absorb(d Detection) (Incident, error) {
	if in.Status == StatusEnded || in.EndedAt != nil {
		return in, ErrEnded
	}
	out := in
	out.Status = StatusActive
	if out.FireCount == 0 {
		seeded := NewIncident(d)
		seeded.ID = in.ID
		return seeded, nil
	}

	out.MinLat = min(out.MinLat, d.Latitude)
	out.MaxLat = max(out.MaxLat, d.Latitude)
	out.MinLon = min(out.MinLon, d.Longitude)
	out.MaxLon = max(out.MaxLon, d.Longitude)
	out.CenterLat = (out.MinLat + out.MaxLat) / 2
	out.CenterLon = (out.MinLon + out.MaxLon) / 2

	at := d.DetectedAt.UTC()
	if at.After(out.LastDetectedAt) {
		out.LastDetectedAt = at
	}
	if at.Before(out.FirstDetectedAt) {
		out.FirstDetectedAt = at
	}

	out.FireCount++
	out.MinFRP = min(out.MinFRP, d.FRP)
	out.MaxFRP = max(out.MaxFRP, d.FRP)
	out.TotalFRP += d.FRP
	out.AvgFRP = out.TotalFRP / float64(out.FireCount)
	return out, nil
}

// Bound is the incident bounding box
func (in Incident) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{in.MinLon, in.MinLat},
		Max: orb.Point{in.MaxLon, in.MaxLat},
	}
}

// Center is the bbox midpoint
func (in Incident) Center() orb.Point { return orb.Point{in.CenterLon, in.CenterLat} }

// Ended reports whether the incident is terminal
func (in Incident) Ended() bool { return in.Status == StatusEnded }

// End returns the incident transitioned to ended at t. Ending an ended
// incident returns it unchanged so ended_at is never rewritten
func (in Incident) End(t time.Time) Incident {
	if in.Ended() {
		return in
	}
	at := t.UTC()
	in.Status = StatusEnded
	in.EndedAt = &at
	return in
}

// Stale reports whether an active incident has been quiet since before cutoff
func (in Incident) Stale(cutoff time.Time) bool {
	return in.Status == StatusActive && in.LastDetectedAt.Before(cutoff)
}
