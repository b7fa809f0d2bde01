// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vod"

var (
	// ReconcileEvents counts completion events by outcome
	// (created, merged, failed_recorded, skipped, ignored, malformed, error).
	ReconcileEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_events_total",
			Help:      "Transcoding completion events reconciled into the catalog",
		},
		[]string{"outcome"},
	)

	// ReconcileConflicts counts conditional writes that lost to a concurrent writer.
	ReconcileConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_write_conflicts_total",
			Help:      "Catalog conditional writes rejected because the record changed",
		},
	)

	// PlaybackRequests counts playback authorizations by tier and result.
	PlaybackRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_requests_total",
			Help:      "Playback authorization attempts",
		},
		[]string{"tier", "result"},
	)

	// EntitlementLookups counts identity store lookups by result (hit, default, error).
	EntitlementLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_lookups_total",
			Help:      "Subscription tier lookups against the identity store",
		},
		[]string{"result"},
	)

	// QueueJobs counts completion queue jobs by result (done, retried, dead_lettered).
	QueueJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_jobs_total",
			Help:      "Completion events processed by the worker",
		},
		[]string{"result"},
	)

	// TranscodeJobsSubmitted counts submitted transcoding jobs by job type (free, full).
	TranscodeJobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_jobs_submitted_total",
			Help:      "Transcoding jobs submitted per uploaded source",
		},
		[]string{"job_type"},
	)
)
