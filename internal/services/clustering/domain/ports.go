package domain

import (
	"context"

	"github.com/paulmach/orb"

	"firewatch/internal/core/fire"
)

// EnginePort is the public port of the clustering module
type EnginePort interface {
	Run(ctx context.Context) (Report, error)
}

// Repo is the storage surface one clustering step needs
type Repo interface {
	// Unassigned pages detections without an incident, ordered by (detected_at, id), strictly after c
	Unassigned(ctx context.Context, after Cursor, limit int) ([]fire.Detection, error)

	// Candidates returns active incidents whose bound intersects box, ordered by id
	Candidates(ctx context.Context, box orb.Bound) ([]fire.Incident, error)

	// Attach sets the detection's incident if it has none; false means it was already assigned
	Attach(ctx context.Context, detectionID, incidentID int64) (bool, error)

	// CreateIncident inserts a new active incident and returns its id
	CreateIncident(ctx context.Context, in fire.Incident) (int64, error)

	// SaveIncident writes aggregates of an active incident; an ended incident yields fire.ErrEnded
	SaveIncident(ctx context.Context, in fire.Incident) error
}
