package fire

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"firewatch/internal/core/geo"
)

// Tag says whether a clustered detection started an incident or joined one
type Tag string

// Clustering tags
const (
	TagNewIncident      Tag = "new_incident"
	TagExistingIncident Tag = "existing_incident"
)

// TaggedDetection is one clustering outcome handed to the notifier
type TaggedDetection struct {
	Detection  Detection
	IncidentID int64
	Tag        Tag
}

// Kind is the notification wording class
type Kind string

// Notification kinds
const (
	KindNewIncident   Kind = "new_incident"
	KindUpdate        Kind = "incident_update"
	KindIncidentEnded Kind = "incident_ended"
)

// Location is a user's monitored area; read-only to the pipeline
type Location struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Latitude  float64
	Longitude float64
	RadiusM   float64
}

// Point returns the location center
func (l Location) Point() orb.Point { return geo.Point(l.Latitude, l.Longitude) }

// Contains reports whether p is inside the monitoring radius
func (l Location) Contains(p orb.Point) bool { return geo.Distance(l.Point(), p) <= l.RadiusM }

// Touches reports whether the monitoring circle intersects b
func (l Location) Touches(b orb.Bound) bool {
	return geo.CircleIntersectsBound(l.Point(), l.RadiusM, b)
}

// GroupKey identifies one notification group
type GroupKey struct {
	UserID     uuid.UUID
	LocationID uuid.UUID
	IncidentID int64
}

// NotificationRequest is the single consolidated alert for a group
type NotificationRequest struct {
	UserID          uuid.UUID       `json:"user_id"`
	LocationID      uuid.UUID       `json:"location_id"`
	IncidentID      int64           `json:"incident_id"`
	Kind            Kind            `json:"kind"`
	NewDetections   int             `json:"new_detections"`
	TotalDetections int             `json:"total_detections"`
	OtherActive     int             `json:"other_active"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// Key returns the group key of the request
func (r NotificationRequest) Key() GroupKey {
	return GroupKey{UserID: r.UserID, LocationID: r.LocationID, IncidentID: r.IncidentID}
}
