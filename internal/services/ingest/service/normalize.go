package service

import (
	"strconv"
	"strings"
	"time"

	"firewatch/internal/core/fire"
	"firewatch/internal/core/geo"
	fetchdom "firewatch/internal/services/fetch/domain"
	"firewatch/internal/services/ingest/domain"
)

// header aliases; VIIRS names first, MODIS second
var columns = map[string][]string{
	"latitude":   {"latitude", "lat"},
	"longitude":  {"longitude", "lon"},
	"bright4":    {"bright_ti4", "brightness"},
	"bright5":    {"bright_ti5", "bright_t31"},
	"scan":       {"scan"},
	"track":      {"track"},
	"acq_date":   {"acq_date"},
	"acq_time":   {"acq_time"},
	"satellite":  {"satellite"},
	"instrument": {"instrument"},
	"confidence": {"confidence"},
	"version":    {"version"},
	"frp":        {"frp"},
	"daynight":   {"daynight"},
}

type layout map[string]int

func resolve(header []string) layout {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	out := layout{}
	for name, aliases := range columns {
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				out[name] = i
				break
			}
		}
	}
	return out
}

func (l layout) str(row []string, name string) string {
	i, ok := l[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// num coerces permissively: anything unparseable is zero
func (l layout) num(row []string, name string) float64 {
	v, err := strconv.ParseFloat(l.str(row, name), 64)
	if err != nil {
		return 0
	}
	return v
}

// Normalize turns a raw table into typed detections. Rows whose column count
// differs from the header, or whose position or acquisition time cannot be
// read, are malformed and dropped; other numeric fields coerce to zero.
// Repeated identity keys inside the table keep the first row
func Normalize(source string, t fetchdom.RawTable) ([]fire.Detection, domain.Stats) {
	st := domain.Stats{Rows: len(t.Rows)}
	if len(t.Rows) == 0 {
		return nil, st
	}
	l := resolve(t.Header)
	seen := make(map[string]struct{}, len(t.Rows))
	out := make([]fire.Detection, 0, len(t.Rows))

	for _, row := range t.Rows {
		if len(row) != len(t.Header) {
			st.Malformed++
			continue
		}
		d, ok := detection(source, l, row)
		if !ok {
			st.Malformed++
			continue
		}
		if _, dup := seen[d.IdentityKey]; dup {
			st.Duplicates++
			continue
		}
		seen[d.IdentityKey] = struct{}{}
		out = append(out, d)
	}
	st.Parsed = len(out)
	return out, st
}

func detection(source string, l layout, row []string) (fire.Detection, bool) {
	lat, err1 := strconv.ParseFloat(l.str(row, "latitude"), 64)
	lon, err2 := strconv.ParseFloat(l.str(row, "longitude"), 64)
	if err1 != nil || err2 != nil || !geo.ValidLatLon(lat, lon) {
		return fire.Detection{}, false
	}
	at, ok := AcquiredAt(l.str(row, "acq_date"), l.str(row, "acq_time"))
	if !ok {
		return fire.Detection{}, false
	}

	d := fire.Detection{
		Source:     source,
		Latitude:   lat,
		Longitude:  lon,
		BrightTI4:  l.num(row, "bright4"),
		BrightTI5:  l.num(row, "bright5"),
		Scan:       l.num(row, "scan"),
		Track:      l.num(row, "track"),
		FRP:        max(l.num(row, "frp"), 0),
		Confidence: fire.ParseConfidence(l.str(row, "confidence")),
		DayNight:   strings.ToUpper(l.str(row, "daynight")),
		Satellite:  l.str(row, "satellite"),
		Instrument: l.str(row, "instrument"),
		Version:    l.str(row, "version"),
		DetectedAt: at,
	}
	d.IdentityKey = fire.IdentityKey(source, lat, lon, at)
	return d, true
}

// AcquiredAt combines a yyyy-mm-dd date with an HHMM slot (left padded, so
// "42" is 00:42) into a UTC timestamp
func AcquiredAt(date, hhmm string) (time.Time, bool) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	if hhmm == "" || len(hhmm) > 4 {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(hhmm)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	h, m := n/100, n%100
	if h > 23 || m > 59 {
		return time.Time{}, false
	}
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), true
}
