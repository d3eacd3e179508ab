package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine and service metrics.
var (
	// TierResolutions counts which tier produced each category outcome.
	TierResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spend_anomaly_tier_resolutions_total",
			Help: "Number of category detections resolved by each tier",
		},
		[]string{"tier"},
	)

	// Detections counts calls to the engine entry points.
	Detections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spend_anomaly_detections_total",
			Help: "Number of detection calls by entry point",
		},
		[]string{"entry"},
	)

	DetectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spend_anomaly_detection_duration_seconds",
			Help:    "Detection duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"entry"},
	)

	// RemoteRequests counts calls to the remote detection service by outcome.
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spend_anomaly_remote_requests_total",
			Help: "Remote detection service requests",
		},
		[]string{"endpoint", "status"},
	)

	// Flagged counts anomalies returned to callers by method tag.
	Flagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spend_anomaly_flagged_total",
			Help: "Anomalies returned by method",
		},
		[]string{"method"},
	)

	Jobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spend_anomaly_jobs_total",
			Help: "Background scan jobs by final status",
		},
		[]string{"status"},
	)
)
