// Package notifier holds delivery adapters for notification requests
package notifier

import (
	"context"

	"github.com/goccy/go-json"

	"firewatch/internal/core/fire"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/services/notify/domain"
)

// Message is the human readable part of a request payload
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// MessageOf decodes title and body from the request payload. An empty
// payload falls back to the kind so something readable is always sent
func MessageOf(req fire.NotificationRequest) (Message, error) {
	var m Message
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &m); err != nil {
			return m, perr.Wrap(err, perr.ErrorCodeJSON, "decode notification payload")
		}
	}
	if m.Title == "" {
		m.Title = string(req.Kind)
	}
	return m, nil
}

// Log writes each request to the logger and reports one device sent
type Log struct{ log logger.Logger }

// NewLog returns a logging notifier
func NewLog(log logger.Logger) *Log { return &Log{log: log} }

// Send implements domain.Notifier
func (l *Log) Send(_ context.Context, req fire.NotificationRequest) (domain.Delivery, error) {
	m, err := MessageOf(req)
	if err != nil {
		return domain.Delivery{Failed: 1}, err
	}
	l.log.Info().
		Str("user_id", req.UserID.String()).
		Str("location_id", req.LocationID.String()).
		Int64("incident_id", req.IncidentID).
		Str("kind", string(req.Kind)).
		Int("new", req.NewDetections).
		Int("total", req.TotalDetections).
		Int("other_active", req.OtherActive).
		Str("title", m.Title).
		Msg("notification")
	return domain.Delivery{Sent: 1}, nil
}
