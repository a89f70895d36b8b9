package metrics

import "time"

// nil receivers are allowed on every helper below so services can run without metrics

// SourceFetched records one source call
func (m *Metrics) SourceFetched(source string, ok bool, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.SourceFetches.WithLabelValues(source, outcome).Inc()
	m.SourceRows.WithLabelValues(source).Add(float64(rows))
	m.SourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Ingested records inserted and malformed counts for a source
func (m *Metrics) Ingested(source string, inserted, malformed int) {
	if m == nil {
		return
	}
	m.DetectionsInserted.WithLabelValues(source).Add(float64(inserted))
	m.DetectionsMalformed.WithLabelValues(source).Add(float64(malformed))
}

// Clustered records one assignment
func (m *Metrics) Clustered(tag string) {
	if m == nil {
		return
	}
	m.DetectionsClustered.WithLabelValues(tag).Inc()
}

// ClusterFailed records one per-detection failure
func (m *Metrics) ClusterFailed() {
	if m == nil {
		return
	}
	m.ClusterErrors.Inc()
}

// Swept records a lifecycle sweep
func (m *Metrics) Swept(ended, active int) {
	if m == nil {
		return
	}
	m.IncidentsEnded.Add(float64(ended))
	m.ActiveIncidents.Set(float64(active))
}

// Purged records deleted incidents
func (m *Metrics) Purged(n int) {
	if m == nil {
		return
	}
	m.IncidentsPurged.Add(float64(n))
}

// Notified records one emitted group and its delivery counts
func (m *Metrics) Notified(kind string, sent, failed int) {
	if m == nil {
		return
	}
	m.NotificationGroups.WithLabelValues(kind).Inc()
	m.NotificationsSent.Add(float64(sent))
	m.NotificationsFail.Add(float64(failed))
}

// JobFinished records a job run
func (m *Metrics) JobFinished(job, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// LeaseSkipped records a single-flight skip
func (m *Metrics) LeaseSkipped(lease string) {
	if m == nil {
		return
	}
	m.LeaseSkips.WithLabelValues(lease).Inc()
}
