// Package fire holds the detection and incident model shared by every service
package fire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"firewatch/internal/core/geo"
)

// Confidence is the normalized detection confidence class
type Confidence string

// Confidence classes
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceNormal Confidence = "normal"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence maps VIIRS letters, words and MODIS 0-100 percentages to a class.
// Anything unrecognized is normal
func ParseConfidence(s string) Confidence {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "l", "low":
		return ConfidenceLow
	case "n", "nominal", "normal":
		return ConfidenceNormal
	case "h", "high":
		return ConfidenceHigh
	}
	if pct, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64); err == nil {
		switch {
		case pct < 30:
			return ConfidenceLow
		case pct < 80:
			return ConfidenceNormal
		default:
			return ConfidenceHigh
		}
	}
	return ConfidenceNormal
}

// Detection is one satellite fire point. Everything except IncidentID is
// immutable once stored
type Detection struct {
	ID          int64
	IdentityKey string
	Source      string

	Latitude  float64
	Longitude float64

	BrightTI4 float64
	BrightTI5 float64
	Scan      float64
	Track     float64
	FRP       float64 // MW, never negative

	Confidence Confidence
	DayNight   string
	Satellite  string
	Instrument string
	Version    string

	DetectedAt time.Time
	IncidentID *int64
}

// Point returns the detection position
func (d Detection) Point() orb.Point { return geo.Point(d.Latitude, d.Longitude) }

// Assigned reports whether the detection already belongs to an incident
func (d Detection) Assigned() bool { return d.IncidentID != nil }

// IdentityKey derives the dedup key for a detection:
// source|yyyy-mm-dd|hhmm|lat|lon with coordinates rounded to 4 decimals (~11 m).
// Distinct fires that share a pixel, slot and source collide; that is accepted
func IdentityKey(source string, lat, lon float64, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s|%s|%s|%.4f|%.4f",
		source, at.Format("2006-01-02"), at.Format("1504"), round4(lat), round4(lon))
}

func round4(v float64) float64 {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		return 0 // folds -0 so the key text is stable
	}
	return r
}
