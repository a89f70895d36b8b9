package domain

import (
	"context"

	"github.com/paulmach/orb"

	"firewatch/internal/core/fire"
)

// OrchestratorPort is the public port of the notify module
type OrchestratorPort interface {
	NotifyDetections(ctx context.Context, tagged []fire.TaggedDetection) (Report, error)
	NotifyEnded(ctx context.Context, incidentIDs []int64) (Report, error)
}

// LocationStore finds monitored locations; read only
type LocationStore interface {
	// FindNear returns locations whose monitoring radius contains p
	FindNear(ctx context.Context, p orb.Point) ([]fire.Location, error)

	// FindNearIncident returns locations whose monitoring circle intersects b
	FindNearIncident(ctx context.Context, b orb.Bound) ([]fire.Location, error)
}

// IncidentReader reads incident aggregates for wording
type IncidentReader interface {
	// Incidents returns current aggregates keyed by id; missing ids are absent
	Incidents(ctx context.Context, ids []int64) (map[int64]fire.Incident, error)

	// ActiveNear returns ids of active incidents whose bound lies within radiusM of p
	ActiveNear(ctx context.Context, p orb.Point, radiusM float64) ([]int64, error)
}

// Notifier delivers one consolidated request; failures are per device
type Notifier interface {
	Send(ctx context.Context, req fire.NotificationRequest) (Delivery, error)
}
