// Package metrics provides Prometheus instrumentation for the media library.
//
// All metrics are prefixed with "medialibrary_" and registered on the default
// registry through promauto. Mount promhttp.Handler() to expose them:
//
//	r.Handle("/metrics", promhttp.Handler())
//
// # Metric Categories
//
//   - Discovery: passes by outcome, pass duration, folders walked
//   - Indexer: files by result (added/updated/unchanged/failed), extraction errors
//   - Scheduler: queued tasks, worker state
//   - Events: observer failures by event type, events mirrored by backend
//   - HTTP: requests by route and status, request duration
//   - Library: media totals by type, refreshed by [Collector]
package metrics
