package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discovery metrics
var (
	DiscoveryPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialibrary_discovery_passes_total",
			Help: "Total number of discovery passes by outcome",
		},
		[]string{"outcome"}, // completed, missing, cancelled
	)

	DiscoveryPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medialibrary_discovery_pass_duration_seconds",
			Help:    "Duration of complete discovery passes in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800},
		},
	)

	DiscoveryFoldersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medialibrary_discovery_folders_total",
			Help: "Total number of folders entered during discovery",
		},
	)
)

// Indexer metrics
var (
	IndexerFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialibrary_indexer_files_total",
			Help: "Total number of files indexed by result",
		},
		[]string{"result"},
	)

	IndexerExtractionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medialibrary_indexer_extraction_errors_total",
			Help: "Total number of files the extractor could not parse",
		},
	)

	IndexerMediaDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medialibrary_indexer_media_deleted_total",
			Help: "Total number of media soft-deleted",
		},
	)
)

// Scheduler metrics
var (
	SchedulerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medialibrary_scheduler_queue_depth",
			Help: "Number of background tasks waiting for the worker",
		},
	)

	SchedulerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "medialibrary_scheduler_state",
			Help: "Current worker state (1 for the active state)",
		},
		[]string{"state"},
	)

	SchedulerTasksCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medialibrary_scheduler_tasks_coalesced_total",
			Help: "Total number of task requests dropped because the same key was pending",
		},
	)
)

// Event metrics
var (
	ObserverFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialibrary_observer_failures_total",
			Help: "Total number of observer errors and panics by event type",
		},
		[]string{"event_type"},
	)

	EventsMirroredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialibrary_events_mirrored_total",
			Help: "Total number of events mirrored to an external broker",
		},
		[]string{"backend", "status"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialibrary_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medialibrary_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Library metrics
var (
	MediaTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "medialibrary_media",
			Help: "Number of live media by type",
		},
		[]string{"type"},
	)
)

// SetSchedulerState marks state as the active one.
func SetSchedulerState(state string, all ...string) {
	for _, s := range all {
		if s == state {
			SchedulerState.WithLabelValues(s).Set(1)
		} else {
			SchedulerState.WithLabelValues(s).Set(0)
		}
	}
}
