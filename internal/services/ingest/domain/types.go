// Package domain holds the fire ingestor types and ports
package domain

// Stats counts what normalization did with one raw table
type Stats struct {
	Rows       int `json:"rows"`
	Parsed     int `json:"parsed"`
	Malformed  int `json:"malformed"`
	Duplicates int `json:"duplicates"`
}

// SourceReport is the ingest outcome for one source
type SourceReport struct {
	Source string `json:"source"`
	Stats
	Inserted int    `json:"inserted"`
	Err      string `json:"error,omitempty"`
}

// Report totals an ingest run
type Report struct {
	PerSource  []SourceReport `json:"per_source"`
	Inserted   int            `json:"inserted"`
	Malformed  int            `json:"malformed"`
	Duplicates int            `json:"duplicates"`
}

// Failed counts sources whose upsert errored
func (r Report) Failed() int {
	n := 0
	for _, s := range r.PerSource {
		if s.Err != "" {
			n++
		}
	}
	return n
}
