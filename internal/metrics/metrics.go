// Package metrics exposes the Prometheus collectors of the ingest service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream client metrics
	UpstreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchlens_upstream_attempts_total",
			Help: "Total number of HTTP attempts against football-data.org, by outcome",
		},
		[]string{"outcome"},
	)

	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchlens_upstream_attempt_duration_seconds",
			Help:    "Duration of a single upstream HTTP attempt in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchlens_upstream_retries_total",
			Help: "Total number of retries scheduled after a retryable failure",
		},
		[]string{"kind"},
	)

	// Ingest coordinator metrics
	IngestOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchlens_ingest_outcomes_total",
			Help: "Total number of ingest calls, by outcome",
		},
		[]string{"outcome"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchlens_ingest_duration_seconds",
			Help:    "Duration of an ingest call in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchlens_event_publish_errors_total",
			Help: "Total number of failed ingest event publications",
		},
	)

	// HTTP adapter metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchlens_http_requests_total",
			Help: "Total number of HTTP requests served, by route and status",
		},
		[]string{"route", "status"},
	)
)
