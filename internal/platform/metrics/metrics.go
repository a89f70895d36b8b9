// Package metrics holds the prometheus collectors for every pipeline stage
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "firewatch"

// Metrics groups the counters, gauges and histograms the services write to.
// A nil *Metrics is valid and records nothing; see the Observe helpers
type Metrics struct {
	// Fetch coordinator
	SourceFetches  *prometheus.CounterVec   // labels: source, outcome={ok,error}
	SourceRows     *prometheus.CounterVec   // labels: source
	SourceDuration *prometheus.HistogramVec // labels: source

	// Ingest
	DetectionsInserted  *prometheus.CounterVec // labels: source
	DetectionsMalformed *prometheus.CounterVec // labels: source

	// Clustering
	DetectionsClustered *prometheus.CounterVec // labels: tag={new_incident,existing_incident}
	ClusterErrors       prometheus.Counter

	// Lifecycle
	IncidentsEnded  prometheus.Counter
	IncidentsPurged prometheus.Counter
	ActiveIncidents prometheus.Gauge

	// Notifications
	NotificationGroups *prometheus.CounterVec // labels: kind
	NotificationsSent  prometheus.Counter
	NotificationsFail  prometheus.Counter

	// Jobs
	JobRuns     *prometheus.CounterVec   // labels: job, status={ok,error,skipped}
	JobDuration *prometheus.HistogramVec // labels: job
	LeaseSkips  *prometheus.CounterVec   // labels: lease
}

func build() *Metrics {
	return &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Satellite source fetches by outcome.",
		}, []string{"source", "outcome"}),
		SourceRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rows_total",
			Help:      "Raw rows returned per satellite source.",
		}, []string{"source"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of a single source fetch.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		DetectionsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_inserted_total",
			Help:      "Detections inserted (new identity keys only).",
		}, []string{"source"}),
		DetectionsMalformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_malformed_total",
			Help:      "Raw rows dropped during normalization.",
		}, []string{"source"}),
		DetectionsClustered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_clustered_total",
			Help:      "Detections assigned to an incident, by tag.",
		}, []string{"tag"}),
		ClusterErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_errors_total",
			Help:      "Per-detection clustering failures.",
		}),
		IncidentsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_ended_total",
			Help:      "Incidents transitioned from active to ended.",
		}),
		IncidentsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_purged_total",
			Help:      "Ended incidents deleted past retention.",
		}),
		ActiveIncidents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "incidents_active",
			Help:      "Active incidents seen by the last lifecycle sweep.",
		}),
		NotificationGroups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_groups_total",
			Help:      "Notification requests emitted, by kind.",
		}, []string{"kind"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Per-device deliveries reported sent by the notifier.",
		}),
		NotificationsFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Per-device deliveries reported failed by the notifier.",
		}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job runs by final status.",
		}, []string{"job", "status"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of a job run including retries.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		LeaseSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lease_skips_total",
			Help:      "Runs skipped because another worker held the lease.",
		}, []string{"lease"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SourceFetches, m.SourceRows, m.SourceDuration,
		m.DetectionsInserted, m.DetectionsMalformed,
		m.DetectionsClustered, m.ClusterErrors,
		m.IncidentsEnded, m.IncidentsPurged, m.ActiveIncidents,
		m.NotificationGroups, m.NotificationsSent, m.NotificationsFail,
		m.JobRuns, m.JobDuration, m.LeaseSkips,
	}
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in binaries
func New(reg prometheus.Registerer) *Metrics {
	m := build()
	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

// NewForTesting creates collectors on a fresh registry so tests can build as
// many as they like without "already registered" panics
func NewForTesting() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return New(reg), reg
}
