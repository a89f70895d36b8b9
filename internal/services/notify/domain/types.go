// Package domain holds the notification orchestrator types and ports
package domain

import "firewatch/internal/core/fire"

// Delivery is the per-device outcome the notifier reports for one request
type Delivery struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// ItemError is a failure confined to one group or one lookup
type ItemError struct {
	Key        string `json:"key"`
	IncidentID int64  `json:"incident_id,omitempty"`
	Err        string `json:"error"`
}

// Report is the outcome of one orchestration run
type Report struct {
	Groups     int                        `json:"groups"`
	Sent       int                        `json:"sent"`
	Failed     int                        `json:"failed"`
	Requests   []fire.NotificationRequest `json:"-"`
	Errors     []ItemError                `json:"errors,omitempty"`
	Dispatched []int64                    `json:"dispatched,omitempty"`
}
