package service

import (
	"github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"firewatch/internal/core/fire"
	perr "firewatch/internal/platform/errors"
)

type payload struct {
	Title    string          `json:"title"`
	Body     string          `json:"body"`
	Incident incidentPayload `json:"incident"`
	Location locationPayload `json:"location"`
}

type incidentPayload struct {
	ID              int64      `json:"id"`
	Status          string     `json:"status"`
	Center          [2]float64 `json:"center"`
	Bounds          [4]float64 `json:"bounds"`
	FireCount       int        `json:"fire_count"`
	MaxFRP          float64    `json:"max_frp"`
	TotalFRP        float64    `json:"total_frp"`
	FirstDetectedAt string     `json:"first_detected_at"`
	LastDetectedAt  string     `json:"last_detected_at"`
	EndedAt         string     `json:"ended_at,omitempty"`
}

type locationPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Wording renders titles and bodies for one language
type Wording struct{ p *message.Printer }

// NewWording returns wording for tag; the zero tag is English
func NewWording(tag language.Tag) Wording {
	if tag == language.Und {
		tag = language.English
	}
	return Wording{p: message.NewPrinter(tag)}
}

// Title is the one-line summary of a request
func (w Wording) Title(req fire.NotificationRequest, place string) string {
	var title string
	switch req.Kind {
	case fire.KindNewIncident:
		title = w.p.Sprintf("New fire near %s", place)
	case fire.KindIncidentEnded:
		title = w.p.Sprintf("Fire near %s has ended", place)
	default:
		if req.NewDetections == 1 {
			title = w.p.Sprintf("1 new detection near %s", place)
		} else {
			title = w.p.Sprintf("%d new detections near %s", req.NewDetections, place)
		}
	}
	if req.OtherActive > 0 && req.Kind != fire.KindIncidentEnded {
		title += w.p.Sprintf(" (1 of %d active fires)", req.OtherActive+1)
	}
	return title
}

// Body describes the incident totals
func (w Wording) Body(req fire.NotificationRequest, in fire.Incident) string {
	body := w.p.Sprintf("%d detections so far, %.1f MW peak radiative power", req.TotalDetections, in.MaxFRP)
	if req.Kind == fire.KindIncidentEnded {
		body = w.p.Sprintf("No new detections since %s; %d detections in total",
			in.LastDetectedAt.UTC().Format("Jan 2 15:04 UTC"), req.TotalDetections)
	}
	if req.OtherActive > 0 {
		body += w.p.Sprintf(". %d other active fires near this location", req.OtherActive)
	}
	return body
}

// Payload encodes the free-form part of a request for the external sender
func (w Wording) Payload(req fire.NotificationRequest, in fire.Incident, loc fire.Location) (json.RawMessage, error) {
	p := payload{
		Title: w.Title(req, loc.Name),
		Body:  w.Body(req, in),
		Incident: incidentPayload{
			ID:              in.ID,
			Status:          string(in.Status),
			Center:          [2]float64{in.CenterLat, in.CenterLon},
			Bounds:          [4]float64{in.MinLat, in.MinLon, in.MaxLat, in.MaxLon},
			FireCount:       in.FireCount,
			MaxFRP:          in.MaxFRP,
			TotalFRP:        in.TotalFRP,
			FirstDetectedAt: in.FirstDetectedAt.UTC().Format(timeLayout),
			LastDetectedAt:  in.LastDetectedAt.UTC().Format(timeLayout),
		},
		Location: locationPayload{ID: loc.ID.String(), Name: loc.Name},
	}
	if in.EndedAt != nil {
		p.Incident.EndedAt = in.EndedAt.UTC().Format(timeLayout)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "encode notification payload")
	}
	return raw, nil
}

const timeLayout = "2006-01-02T15:04:05Z"
