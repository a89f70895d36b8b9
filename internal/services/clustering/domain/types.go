// Package domain holds the clustering engine types and ports
package domain

import (
	"time"

	"firewatch/internal/core/fire"
)

// Cursor is a keyset position in the oldest-first scan of unassigned detections
type Cursor struct {
	DetectedAt time.Time
	ID         int64
}

// After reports whether d sorts after the cursor
func (c Cursor) After(d fire.Detection) bool {
	if d.DetectedAt.Equal(c.DetectedAt) {
		return d.ID > c.ID
	}
	return d.DetectedAt.After(c.DetectedAt)
}

// Of returns the cursor positioned at d
func Of(d fire.Detection) Cursor { return Cursor{DetectedAt: d.DetectedAt, ID: d.ID} }

// ItemError is a per-detection failure that did not stop the pass
type ItemError struct {
	DetectionID int64  `json:"detection_id"`
	Err         string `json:"error"`
}

// Report is the outcome of one clustering pass
type Report struct {
	Processed    int                    `json:"processed"`
	NewIncidents int                    `json:"new_incidents"`
	Skipped      int                    `json:"skipped"`
	Tagged       []fire.TaggedDetection `json:"-"`
	Touched      []int64                `json:"touched"`
	Errors       []ItemError            `json:"errors,omitempty"`
}
