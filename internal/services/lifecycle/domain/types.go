// Package domain holds the incident lifecycle types and ports
package domain

// SweepReport is the outcome of one expiry sweep
type SweepReport struct {
	Ended     []int64 `json:"ended"`
	Notified  []int64 `json:"notified"`
	Pending   int     `json:"pending"`
	Active    int     `json:"active"`
	NotifyErr string  `json:"notify_error,omitempty"`
}

// PurgeReport is the outcome of one purge run. Batches that committed
// stay committed when a later batch gives up
type PurgeReport struct {
	Batches    int    `json:"batches"`
	Incidents  int    `json:"incidents"`
	Detections int    `json:"detections"`
	Archived   int    `json:"archived"`
	Retries    int    `json:"retries"`
	Err        string `json:"error,omitempty"`
}
